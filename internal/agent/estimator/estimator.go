// Package estimator computes project price estimates for the pricing_estimator
// tool and answers the tool invocation through the bridge.
package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/launchkit-studio/site-assistant/internal/agent/bridge"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

const (
	DefaultComplexity = 50
	DefaultTimeframe  = 50
)

// DefaultValues is the initial state of the form.
func DefaultValues() model.EstimatorInput {
	return model.EstimatorInput{
		Complexity:       DefaultComplexity,
		Timeframe:        DefaultTimeframe,
		SelectedFeatures: []string{},
	}
}

// Estimator is the form state bound to one pricing_estimator invocation.
type Estimator struct {
	invocation model.ToolInvocation
	bridge     *bridge.Bridge
	constants  model.PricingConstants
	catalog    Catalog
	log        zerolog.Logger

	mu     sync.Mutex
	state  model.EstimatorState
	values model.EstimatorInput
}

// New binds a form to inv. Values the assistant passed in the invocation
// arguments pre-fill the form.
func New(inv model.ToolInvocation, b *bridge.Bridge, constants model.PricingConstants, catalog Catalog) *Estimator {
	if b == nil {
		b = bridge.New()
	}
	if catalog == nil {
		catalog = DefaultCatalog
	}
	return &Estimator{
		invocation: inv,
		bridge:     b,
		constants:  constants,
		catalog:    catalog,
		log:        logx.With("estimator").With().Str("tool_call_id", inv.ID.String()).Logger(),
		state:      model.EstimatorState{AskingForProject: true},
		values:     prefill(inv.Arguments),
	}
}

// Invocation returns the tool call the form answers.
func (e *Estimator) Invocation() model.ToolInvocation { return e.invocation }

// FeatureOptions returns the catalog shown on the form.
func (e *Estimator) FeatureOptions() Catalog { return e.catalog }

// State returns a snapshot of the UI state.
func (e *Estimator) State() model.EstimatorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	if s.Estimate != nil {
		v := *s.Estimate
		s.Estimate = &v
	}
	return s
}

// SetAskingForProject is toggled by the surrounding chat flow.
func (e *Estimator) SetAskingForProject(v bool) {
	e.mu.Lock()
	e.state.AskingForProject = v
	e.mu.Unlock()
}

// Values returns a copy of the current form values.
func (e *Estimator) Values() model.EstimatorInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.values
	v.SelectedFeatures = slices.Clone(e.values.SelectedFeatures)
	return v
}

// SetValues replaces the form values without validating them.
func (e *Estimator) SetValues(v model.EstimatorInput) {
	e.mu.Lock()
	e.values = v
	e.values.SelectedFeatures = slices.Clone(v.SelectedFeatures)
	e.mu.Unlock()
}

// ToggleFeature adds id to the selection, or removes it if already selected.
func (e *Estimator) ToggleFeature(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.values.SelectedFeatures, id); i >= 0 {
		e.values.SelectedFeatures = slices.Delete(e.values.SelectedFeatures, i, i+1)
		return
	}
	e.values.SelectedFeatures = append(e.values.SelectedFeatures, id)
}

// Submit validates values, waits the configured delay, computes the estimate
// and submits exactly one tool result for the bound invocation.
//
// Only a *ValidationError is returned; in that case nothing is calculated
// or submitted. Every later failure becomes a failed tool result.
func (e *Estimator) Submit(ctx context.Context, values model.EstimatorInput) error {
	in, err := Validate(values)
	if err != nil {
		e.log.Debug().Err(err).Msg("estimator input rejected")
		return err
	}

	e.setCalculating(true)
	defer e.setCalculating(false)

	result := e.calculate(ctx, in)

	submitCtx := ctx
	if ctx.Err() != nil {
		submitCtx = context.WithoutCancel(ctx)
	}
	if err := e.bridge.SubmitResult(submitCtx, e.invocation.ID, e.invocation.Name, result); err != nil {
		e.log.Error().Err(err).Bool("success", result.Success).Msg("failed to submit tool result")
		return nil
	}
	e.log.Debug().Bool("success", result.Success).Msg("tool result submitted")
	return nil
}

// SubmitCurrent submits the form's current values.
func (e *Estimator) SubmitCurrent(ctx context.Context) error {
	return e.Submit(ctx, e.Values())
}

func (e *Estimator) calculate(ctx context.Context, in model.EstimatorInput) (result model.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Msgf("panic recovered while calculating estimate: %v", r)
			result = failedResult()
		}
	}()

	if err := wait(ctx, e.constants.CalculationDelay); err != nil {
		e.log.Warn().Err(err).Msg("estimate cancelled during calculation delay")
		return failedResult()
	}

	estimate, err := Calculate(in, e.constants, e.catalog)
	if err != nil {
		e.log.Error().Err(err).Msg("error calculating estimate")
		return failedResult()
	}

	e.mu.Lock()
	e.state.Estimate = &estimate
	e.mu.Unlock()

	e.log.Info().
		Int64("estimate", estimate).
		Int("complexity", in.Complexity).
		Int("timeframe", in.Timeframe).
		Strs("features", in.SelectedFeatures).
		Msg("estimate calculated")

	return model.NewToolResult(true, model.EstimatePayload{
		Estimate:   estimate,
		Currency:   e.constants.Currency,
		Complexity: in.Complexity,
		Timeframe:  in.Timeframe,
		Features:   in.SelectedFeatures,
	})
}

func (e *Estimator) setCalculating(v bool) {
	e.mu.Lock()
	e.state.IsCalculating = v
	e.mu.Unlock()
}

func failedResult() model.ToolResult {
	return model.NewToolResult(false, map[string]string{"error": errx.CalculationErrorMessage})
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("calculation delay: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// prefill reads form defaults from the assistant's tool arguments. Numbers are
// clamped into the slider range; anything malformed is ignored.
func prefill(args json.RawMessage) model.EstimatorInput {
	v := DefaultValues()
	if len(args) == 0 {
		return v
	}
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return v
	}
	if n, ok := sliderValue(m["complexity"]); ok {
		v.Complexity = n
	}
	if n, ok := sliderValue(m["timeframe"]); ok {
		v.Timeframe = n
	}
	raw, ok := m["selectedFeatures"]
	if !ok {
		raw = m["features"]
	}
	if list, ok := raw.([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" && !slices.Contains(v.SelectedFeatures, strings.TrimSpace(s)) {
				v.SelectedFeatures = append(v.SelectedFeatures, strings.TrimSpace(s))
			}
		}
	}
	return v
}

// sliderValue clamps before converting: int() of an out-of-range float is
// implementation-defined.
func sliderValue(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return int(math.Max(minSlider, math.Min(maxSlider, f))), true
}
