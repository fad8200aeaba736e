package estimator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
)

const (
	minSlider = 0
	maxSlider = 100
)

var hundred = decimal.NewFromInt(maxSlider)

// ValidationError carries field-level messages for the estimator form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("invalid estimator input (%s)", strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return errx.ErrValidation }

// Validate checks the form constraints and returns the input with its
// feature list reduced to a set. Unknown feature ids are kept; they cost nothing.
func Validate(in model.EstimatorInput) (model.EstimatorInput, error) {
	fields := map[string]string{}
	if in.Complexity < minSlider || in.Complexity > maxSlider {
		fields["complexity"] = fmt.Sprintf("must be between %d and %d, got %d", minSlider, maxSlider, in.Complexity)
	}
	if in.Timeframe < minSlider || in.Timeframe > maxSlider {
		fields["timeframe"] = fmt.Sprintf("must be between %d and %d, got %d", minSlider, maxSlider, in.Timeframe)
	}

	seen := make(map[string]struct{}, len(in.SelectedFeatures))
	features := make([]string, 0, len(in.SelectedFeatures))
	for _, id := range in.SelectedFeatures {
		id = strings.TrimSpace(id)
		if id == "" {
			fields["selectedFeatures"] = "feature ids must not be empty"
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		features = append(features, id)
	}

	if len(fields) > 0 {
		return model.EstimatorInput{}, &ValidationError{Fields: fields}
	}
	return model.EstimatorInput{
		Complexity:       in.Complexity,
		Timeframe:        in.Timeframe,
		SelectedFeatures: features,
	}, nil
}

// Calculate maps validated input to an estimate:
//
//	round((base + Σ features) * complexityMultiplier * timeframeMultiplier)
//
// Arithmetic is decimal and the final rounding is half away from zero.
// A shorter timeframe (lower slider value) gives a larger multiplier.
func Calculate(in model.EstimatorInput, c model.PricingConstants, catalog Catalog) (int64, error) {
	if in.Complexity < minSlider || in.Complexity > maxSlider || in.Timeframe < minSlider || in.Timeframe > maxSlider {
		return 0, fmt.Errorf("complexity %d timeframe %d outside [%d, %d]: %w",
			in.Complexity, in.Timeframe, minSlider, maxSlider, errx.ErrCalculation)
	}

	featureCost := decimal.Zero
	for _, id := range in.SelectedFeatures {
		if f, ok := catalog.Lookup(id); ok {
			featureCost = featureCost.Add(decimal.NewFromInt(f.Value))
		}
	}

	complexity := multiplier(c.Complexity, in.Complexity)
	timeframe := multiplier(c.Timeframe, maxSlider-in.Timeframe)

	total := decimal.NewFromInt(c.BasePrice).Add(featureCost).Mul(complexity).Mul(timeframe)
	return total.Round(0).IntPart(), nil
}

// multiplier returns min + (position/100) * range.
func multiplier(r model.MultiplierRange, position int) decimal.Decimal {
	step := decimal.NewFromInt(int64(position)).Div(hundred)
	return decimal.NewFromFloat(r.Min).Add(step.Mul(decimal.NewFromFloat(r.Range)))
}
