package tools

import (
	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/estimator"
)

// ===================================
// Pricing Estimator Tool (client-side)
// ===================================

// pricingEstimatorInfo describes the form-driven estimator. It has no server
// implementation: the chat renders a form and the result comes back through the bridge.
func pricingEstimatorInfo(catalog estimator.Catalog) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolPricingEstimator,
		Desc: "Show the visitor an interactive project price estimator form. Use this when the visitor asks what a project would cost or wants a quote. The visitor adjusts complexity, timeframe and features and submits; the result (estimate, currency and chosen inputs) is returned to you as this tool's result. Do not invent prices yourself.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"complexity": {
				Type: schema.Integer,
				Desc: "Optional starting complexity from 0 (simple landing page) to 100 (complex platform), inferred from what the visitor described.",
			},
			"timeframe": {
				Type: schema.Integer,
				Desc: "Optional starting timeframe from 0 (as fast as possible) to 100 (no rush).",
			},
			"features": {
				Type: schema.Array,
				Desc: "Optional feature ids to pre-select.",
				ElemInfo: &schema.ParameterInfo{
					Type: schema.String,
					Enum: catalog.IDs(),
				},
			},
		}),
	}
}
