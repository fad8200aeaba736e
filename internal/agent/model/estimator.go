package model

import "time"

// EstimatorInput is the validated form payload of the pricing estimator.
type EstimatorInput struct {
	Complexity       int      `json:"complexity"`
	Timeframe        int      `json:"timeframe"`
	SelectedFeatures []string `json:"selectedFeatures"`
}

// FeatureOption is one entry of the static feature catalog.
type FeatureOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// MultiplierRange maps a 0..100 slider onto [Min, Min+Range].
type MultiplierRange struct {
	Min   float64 `json:"min"`
	Range float64 `json:"range"`
}

type PricingConstants struct {
	BasePrice        int64           `json:"basePrice"`
	Complexity       MultiplierRange `json:"complexity"`
	Timeframe        MultiplierRange `json:"timeframe"`
	Currency         string          `json:"currency"`
	CalculationDelay time.Duration   `json:"-"`
}

// EstimatePayload is the data of a successful estimate tool result.
type EstimatePayload struct {
	Estimate   int64    `json:"estimate"`
	Currency   string   `json:"currency"`
	Complexity int      `json:"complexity"`
	Timeframe  int      `json:"timeframe"`
	Features   []string `json:"features"`
}

// EstimatorState is what the form layer renders while an estimate is in flight.
type EstimatorState struct {
	IsCalculating    bool
	Estimate         *int64
	AskingForProject bool
}
