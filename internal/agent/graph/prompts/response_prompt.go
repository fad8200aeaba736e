package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/graph/tools"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the sales assistant system prompt and triggers prompt callbacks.
// withDocuments controls whether the site document tool is advertised.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, withDocuments bool) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"CompanyName":   config.CompanyName,
		"CompanyPitch":  config.CompanyPitch,
		"ContactEmail":  config.ContactEmail,
		"EstimatorTool": tools.ToolPricingEstimator,
		"FeaturesTool":  tools.ToolListEstimatorFeatures,
		"DocumentTool":  "",
	}
	if withDocuments {
		vars["DocumentTool"] = tools.ToolGetSiteDocument
	}

	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
