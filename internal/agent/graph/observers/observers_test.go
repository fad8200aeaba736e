package observers_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-studio/site-assistant/internal/agent/graph/observers"
	"github.com/launchkit-studio/site-assistant/internal/core"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

// Swaps the global logger; not parallel.
func TestNewAllCallbacks_Tool(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.LoggerOpts{Environment: core.Production, Level: "debug", Output: &buf})
	t.Cleanup(func() { logx.Init() })

	h := observers.NewAllCallbacks()
	require.NotNil(t, h)

	info := &einocb.RunInfo{Name: "list_estimator_features", Component: components.ComponentOfTool}
	ctx := h.OnStart(context.Background(), info, &tool.CallbackInput{ArgumentsInJSON: `{"x":1}`})
	h.OnError(ctx, info, errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"component":"tool"`)
	assert.Contains(t, out, `"tool_name":"list_estimator_features"`)
	assert.Contains(t, out, "tool start")
	assert.Contains(t, out, "boom")
}
