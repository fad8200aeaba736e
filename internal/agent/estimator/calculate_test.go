package estimator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-studio/site-assistant/internal/agent/estimator"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
)

var testCatalog = estimator.Catalog{
	{ID: "a", Label: "A", Value: 200},
	{ID: "b", Label: "B", Value: 750},
}

func unitConstants() model.PricingConstants {
	return model.PricingConstants{
		BasePrice:  1000,
		Complexity: model.MultiplierRange{Min: 1.0, Range: 1.0},
		Timeframe:  model.MultiplierRange{Min: 1.0, Range: 1.0},
		Currency:   "USD",
	}
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	t.Run("midpoint scenario", func(t *testing.T) {
		t.Parallel()
		got, err := estimator.Calculate(model.EstimatorInput{
			Complexity:       50,
			Timeframe:        50,
			SelectedFeatures: []string{"a"},
		}, unitConstants(), testCatalog)
		require.NoError(t, err)
		// (1000+200) * 1.5 * 1.5
		assert.Equal(t, int64(2700), got)
	})

	t.Run("boundary uses minimum multipliers", func(t *testing.T) {
		t.Parallel()
		c := model.PricingConstants{
			BasePrice:  3333,
			Complexity: model.MultiplierRange{Min: 0.8, Range: 1.2},
			Timeframe:  model.MultiplierRange{Min: 1.1, Range: 0.4},
		}
		got, err := estimator.Calculate(model.EstimatorInput{Complexity: 0, Timeframe: 100}, c, testCatalog)
		require.NoError(t, err)
		// 3333 * 0.8 * 1.1 = 2933.04
		assert.Equal(t, int64(2933), got)
	})

	t.Run("maximum multipliers", func(t *testing.T) {
		t.Parallel()
		got, err := estimator.Calculate(model.EstimatorInput{Complexity: 100, Timeframe: 0}, unitConstants(), testCatalog)
		require.NoError(t, err)
		assert.Equal(t, int64(4000), got)
	})

	t.Run("unknown features cost nothing", func(t *testing.T) {
		t.Parallel()
		with, err := estimator.Calculate(model.EstimatorInput{
			Complexity:       50,
			Timeframe:        50,
			SelectedFeatures: []string{"a", "does-not-exist"},
		}, unitConstants(), testCatalog)
		require.NoError(t, err)
		without, err := estimator.Calculate(model.EstimatorInput{
			Complexity:       50,
			Timeframe:        50,
			SelectedFeatures: []string{"a"},
		}, unitConstants(), testCatalog)
		require.NoError(t, err)
		assert.Equal(t, without, with)
	})

	t.Run("rounds half away from zero", func(t *testing.T) {
		t.Parallel()
		c := model.PricingConstants{
			BasePrice:  1,
			Complexity: model.MultiplierRange{Min: 2.5},
			Timeframe:  model.MultiplierRange{Min: 1},
		}
		got, err := estimator.Calculate(model.EstimatorInput{Complexity: 0, Timeframe: 100}, c, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got)

		c.Complexity.Min = 2.49
		got, err = estimator.Calculate(model.EstimatorInput{Complexity: 0, Timeframe: 100}, c, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got)
	})

	t.Run("decimal arithmetic avoids float drift", func(t *testing.T) {
		t.Parallel()
		// 0.1 + 0.2 style inputs: 1000 * (1 + 0.35*0.2) * 1 = 1070 exactly.
		c := model.PricingConstants{
			BasePrice:  1000,
			Complexity: model.MultiplierRange{Min: 1, Range: 0.2},
			Timeframe:  model.MultiplierRange{Min: 1},
		}
		got, err := estimator.Calculate(model.EstimatorInput{Complexity: 35, Timeframe: 100}, c, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1070), got)
	})

	t.Run("out of range input is a calculation error", func(t *testing.T) {
		t.Parallel()
		_, err := estimator.Calculate(model.EstimatorInput{Complexity: 150, Timeframe: 50}, unitConstants(), testCatalog)
		assert.ErrorIs(t, err, errx.ErrCalculation)
	})
}

func TestCalculate_Properties(t *testing.T) {
	t.Parallel()

	c := model.PricingConstants{
		BasePrice:  5000,
		Complexity: model.MultiplierRange{Min: 1.0, Range: 1.0},
		Timeframe:  model.MultiplierRange{Min: 1.0, Range: 0.5},
	}
	featureSets := [][]string{nil, {"a"}, {"a", "b"}, {"b", "unknown"}}

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		for _, fs := range featureSets {
			for cx := 0; cx <= 100; cx += 7 {
				for tf := 0; tf <= 100; tf += 9 {
					in := model.EstimatorInput{Complexity: cx, Timeframe: tf, SelectedFeatures: fs}
					first, err := estimator.Calculate(in, c, testCatalog)
					require.NoError(t, err)
					second, err := estimator.Calculate(in, c, testCatalog)
					require.NoError(t, err)
					assert.Equal(t, first, second)
				}
			}
		}
	})

	t.Run("non-decreasing in complexity", func(t *testing.T) {
		t.Parallel()
		for _, fs := range featureSets {
			for tf := 0; tf <= 100; tf += 10 {
				prev := int64(-1)
				for cx := 0; cx <= 100; cx++ {
					got, err := estimator.Calculate(model.EstimatorInput{Complexity: cx, Timeframe: tf, SelectedFeatures: fs}, c, testCatalog)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, got, prev, "complexity=%d timeframe=%d", cx, tf)
					prev = got
				}
			}
		}
	})

	t.Run("non-decreasing as timeframe shrinks", func(t *testing.T) {
		t.Parallel()
		for _, fs := range featureSets {
			for cx := 0; cx <= 100; cx += 10 {
				prev := int64(-1)
				for tf := 100; tf >= 0; tf-- {
					got, err := estimator.Calculate(model.EstimatorInput{Complexity: cx, Timeframe: tf, SelectedFeatures: fs}, c, testCatalog)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, got, prev, "complexity=%d timeframe=%d", cx, tf)
					prev = got
				}
			}
		}
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts range bounds", func(t *testing.T) {
		t.Parallel()
		for _, v := range []int{0, 100} {
			_, err := estimator.Validate(model.EstimatorInput{Complexity: v, Timeframe: v})
			assert.NoError(t, err)
		}
	})

	t.Run("rejects out of range with field errors", func(t *testing.T) {
		t.Parallel()
		_, err := estimator.Validate(model.EstimatorInput{Complexity: 150, Timeframe: -1})
		require.ErrorIs(t, err, errx.ErrValidation)
		var verr *estimator.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "complexity")
		assert.Contains(t, verr.Fields, "timeframe")
		assert.Contains(t, err.Error(), "complexity: must be between 0 and 100, got 150")
	})

	t.Run("collapses duplicate features", func(t *testing.T) {
		t.Parallel()
		got, err := estimator.Validate(model.EstimatorInput{
			Complexity:       10,
			Timeframe:        10,
			SelectedFeatures: []string{"a", " a", "b", "a"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got.SelectedFeatures)
	})

	t.Run("keeps unknown features", func(t *testing.T) {
		t.Parallel()
		got, err := estimator.Validate(model.EstimatorInput{SelectedFeatures: []string{"nope"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"nope"}, got.SelectedFeatures)
	})

	t.Run("rejects empty feature ids", func(t *testing.T) {
		t.Parallel()
		_, err := estimator.Validate(model.EstimatorInput{SelectedFeatures: []string{""}})
		var verr *estimator.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "selectedFeatures")
	})
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	f, ok := testCatalog.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, int64(750), f.Value)

	_, ok = testCatalog.Lookup("z")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, testCatalog.IDs())
	assert.NotEmpty(t, estimator.DefaultCatalog)
}
