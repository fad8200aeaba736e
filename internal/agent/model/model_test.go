package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
)

func TestComputeCost(t *testing.T) {
	t.Parallel()

	t.Run("nil usage costs nothing", func(t *testing.T) {
		t.Parallel()
		in, out, total := model.ComputeCost(nil, model.ResolvePricing("gemini-2.5-flash"))
		assert.Zero(t, in)
		assert.Zero(t, out)
		assert.Zero(t, total)
	})

	t.Run("per million tokens", func(t *testing.T) {
		t.Parallel()
		usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 2_000_000}
		in, out, total := model.ComputeCost(usage, model.Pricing{InputPerM: 0.5, OutputPerM: 1})
		assert.InDelta(t, 0.5, in, 1e-9)
		assert.InDelta(t, 2.0, out, 1e-9)
		assert.InDelta(t, 2.5, total, 1e-9)
	})

	t.Run("unknown model is free", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, model.Pricing{}, model.ResolvePricing("mystery"))
	})
}

func TestToolResult_String(t *testing.T) {
	t.Parallel()

	r := model.NewToolResult(true, model.EstimatePayload{
		Estimate:   2700,
		Currency:   "USD",
		Complexity: 50,
		Timeframe:  50,
		Features:   []string{"a"},
	})
	assert.JSONEq(t,
		`{"success":true,"data":{"estimate":2700,"currency":"USD","complexity":50,"timeframe":50,"features":["a"]}}`,
		r.String())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(model.NewToolResult(false, map[string]string{"error": "x"}).String()), &decoded))
	assert.Equal(t, false, decoded["success"])
}

func TestPricingConfig_Constants(t *testing.T) {
	t.Parallel()

	cfg := model.PricingConfig{
		BasePrice:        1000,
		ComplexityMin:    1,
		ComplexityRange:  1,
		TimeframeMin:     0.9,
		TimeframeRange:   0.3,
		Currency:         "EUR",
		CalculationDelay: time.Second,
	}
	c := cfg.Constants()
	assert.Equal(t, int64(1000), c.BasePrice)
	assert.Equal(t, model.MultiplierRange{Min: 1, Range: 1}, c.Complexity)
	assert.Equal(t, model.MultiplierRange{Min: 0.9, Range: 0.3}, c.Timeframe)
	assert.Equal(t, "EUR", c.Currency)
	assert.Equal(t, time.Second, c.CalculationDelay)
}
