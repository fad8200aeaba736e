package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/estimator"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
)

type ListEstimatorFeaturesInput struct{}

type ListEstimatorFeaturesOutput struct {
	Features  []model.FeatureOption            `json:"features"`
	BasePrice int64                            `json:"base_price"`
	Currency  string                           `json:"currency"`
	Ranges    map[string]model.MultiplierRange `json:"multipliers"`
}

func createListEstimatorFeaturesTool(catalog estimator.Catalog, constants model.PricingConstants) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolListEstimatorFeatures,
			Desc: "List the project features the price estimator offers, with their cost contribution, plus the base price and currency. Use it to explain what drives a quote or to decide which features to pre-select before showing the estimator.",
		},
		func(ctx context.Context, in *ListEstimatorFeaturesInput) (*ListEstimatorFeaturesOutput, error) {
			return &ListEstimatorFeaturesOutput{
				Features:  catalog,
				BasePrice: constants.BasePrice,
				Currency:  constants.Currency,
				Ranges: map[string]model.MultiplierRange{
					"complexity": constants.Complexity,
					"timeframe":  constants.Timeframe,
				},
			}, nil
		},
	)
}
