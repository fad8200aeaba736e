package prompts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-studio/site-assistant/internal/agent/graph/prompts"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
)

func TestRenderResponseSystem(t *testing.T) {
	t.Parallel()
	cfg := model.ResponsePromptConfig{
		CompanyName:  "Launchkit Studio",
		CompanyPitch: "a product studio",
		ContactEmail: "hello@example.com",
	}

	t.Run("with documents", func(t *testing.T) {
		t.Parallel()
		out, err := prompts.RenderResponseSystem(context.Background(), cfg, true)
		require.NoError(t, err)
		assert.Contains(t, out, "Launchkit Studio is a product studio.")
		assert.Contains(t, out, "hello@example.com")
		assert.Contains(t, out, "- pricing_estimator:")
		assert.Contains(t, out, "- get_site_document:")
	})

	t.Run("without documents", func(t *testing.T) {
		t.Parallel()
		out, err := prompts.RenderResponseSystem(context.Background(), cfg, false)
		require.NoError(t, err)
		assert.NotContains(t, out, "get_site_document")
		assert.Contains(t, out, "list_estimator_features")
	})
}
