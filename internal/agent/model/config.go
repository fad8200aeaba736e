package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL     time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"20"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
	// ThinkingBudget of 0 disables thoughts.
	ThinkingBudget int32 `envconfig:"RESPONSE_THINKING_BUDGET" default:"1024"`
}

type ResponsePromptConfig struct {
	CompanyName  string `envconfig:"PROMPT_COMPANY_NAME" default:"Launchkit Studio"`
	CompanyPitch string `envconfig:"PROMPT_COMPANY_PITCH" default:"a product studio that designs and ships web apps for startups"`
	ContactEmail string `envconfig:"PROMPT_CONTACT_EMAIL" default:"hello@launchkit.studio"`
}

// PricingConfig carries the estimator constants. Multipliers are
// min + (input/100) * range, so min..min+range across the slider.
type PricingConfig struct {
	BasePrice        int64         `envconfig:"PRICING_BASE_PRICE" default:"5000"`
	ComplexityMin    float64       `envconfig:"PRICING_COMPLEXITY_MIN" default:"1.0"`
	ComplexityRange  float64       `envconfig:"PRICING_COMPLEXITY_RANGE" default:"1.0"`
	TimeframeMin     float64       `envconfig:"PRICING_TIMEFRAME_MIN" default:"1.0"`
	TimeframeRange   float64       `envconfig:"PRICING_TIMEFRAME_RANGE" default:"0.5"`
	Currency         string        `envconfig:"PRICING_CURRENCY" default:"USD"`
	CalculationDelay time.Duration `envconfig:"PRICING_CALCULATION_DELAY" default:"1500ms"`
}

// Constants converts the env config into the estimator's constants.
func (c PricingConfig) Constants() PricingConstants {
	return PricingConstants{
		BasePrice:        c.BasePrice,
		Complexity:       MultiplierRange{Min: c.ComplexityMin, Range: c.ComplexityRange},
		Timeframe:        MultiplierRange{Min: c.TimeframeMin, Range: c.TimeframeRange},
		Currency:         c.Currency,
		CalculationDelay: c.CalculationDelay,
	}
}

type ContentConfig struct {
	Root       string `envconfig:"CONTENT_ROOT" default:"data"`
	LegalDir   string `envconfig:"CONTENT_LEGAL_DIR" default:"legal"`
	CompanyDir string `envconfig:"CONTENT_COMPANY_DIR" default:"company"`
}
