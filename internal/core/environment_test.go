package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-studio/site-assistant/internal/core"
)

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want core.Environment
	}{
		{"production", core.Production},
		{" Production ", core.Production},
		{"prod", core.Production},
		{"staging", core.Staging},
		{"stage", core.Staging},
		{"testing", core.Testing},
		{"CI", core.Testing},
		{"local", core.Development},
		{"development", core.Development},
		{"", core.Development},
		{"qa", core.Development},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, core.ParseEnvironment(tt.in))
		})
	}
}

func TestEnvironment_Decode(t *testing.T) {
	t.Parallel()
	var e core.Environment
	require.NoError(t, e.Decode("production"))
	assert.True(t, e.IsProduction())
	assert.Equal(t, "production", e.String())
}
