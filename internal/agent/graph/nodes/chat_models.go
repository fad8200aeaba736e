package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

// GeminiConfig selects the Gemini endpoint and the response model settings.
type GeminiConfig struct {
	APIKey   string
	BaseURL  string
	Response model.ResponseModelConfig
}

// ResponseModel is the chat model that answers the visitor.
// Name is kept for cost lookups.
type ResponseModel struct {
	Model einomodel.ToolCallingChatModel
	Name  string
}

func NewResponseModel(ctx context.Context, cfg GeminiConfig) (*ResponseModel, error) {
	if cfg.Response.Model == "" {
		return nil, fmt.Errorf("response model name is empty")
	}

	clientCfg := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Gemini client init failed")
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	rc := cfg.Response
	gcfg := &gemini.Config{
		Client:      client,
		Model:       rc.Model,
		Temperature: &rc.Temperature,
		MaxTokens:   &rc.MaxTokens,
	}
	if rc.ThinkingBudget > 0 {
		gcfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(rc.ThinkingBudget),
		}
	}

	cm, err := gemini.NewChatModel(ctx, gcfg)
	if err != nil {
		logx.Error().Err(err).Str("model", rc.Model).Msg("Gemini chat model init failed")
		return nil, fmt.Errorf("gemini chat model %s: %w", rc.Model, err)
	}
	return &ResponseModel{Model: cm, Name: rc.Model}, nil
}

// BindTools exposes the tool schemas to the model, client tools included.
func (m *ResponseModel) BindTools(tools []*schema.ToolInfo) error {
	bound, err := m.Model.WithTools(tools)
	if err != nil {
		logx.Error().Err(err).Msg("Binding tools to response model failed")
		return fmt.Errorf("bind tools: %w", err)
	}
	m.Model = bound
	logx.Debug().Int("tool_count", len(tools)).Str("model", m.Name).Msg("Tools bound to response model")
	return nil
}
