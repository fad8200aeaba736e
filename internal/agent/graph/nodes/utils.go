package nodes

import (
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
)

// toolBudget caps how many times the tools node may run in one turn.
type toolBudget int

const defaultToolBudget toolBudget = 10

func newToolBudget(n int) toolBudget {
	if n <= 0 {
		return defaultToolBudget
	}
	return toolBudget(n)
}

// exhausted flags the state the first time the run count reaches the budget.
func (b toolBudget) exhausted(state *model.AppState) bool {
	if state.ToolCallLimitReached || state.ToolCallCount < int(b) {
		return false
	}
	state.ToolCallLimitReached = true
	return true
}

// spend records one tools node run and reports whether it went over budget.
func (b toolBudget) spend(state *model.AppState) bool {
	state.ToolCallCount++
	if state.ToolCallCount <= int(b) {
		return false
	}
	state.ToolCallLimitReached = true
	return true
}

func newToolCallID() string {
	return "call_" + uuid.NewString()
}

// keyResultsByName returns the transcript as the Gemini adapter expects it:
// a function response is matched to its call by function name, which the
// adapter reads from ToolCallID. Stored messages keep their own call ids.
func keyResultsByName(msgs []*schema.Message) []*schema.Message {
	names := map[string]string{}
	out := make([]*schema.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m == nil {
			continue
		}
		for _, c := range m.ToolCalls {
			names[c.ID] = c.Function.Name
		}
		if m.Role != schema.Tool {
			continue
		}
		name := m.ToolName
		if name == "" {
			name = names[m.ToolCallID]
		}
		if name == "" || name == m.ToolCallID {
			continue
		}
		clone := *m
		clone.ToolCallID = name
		out[i] = &clone
	}
	return out
}
