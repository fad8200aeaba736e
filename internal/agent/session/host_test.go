package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-studio/site-assistant/internal/agent/bridge"
	"github.com/launchkit-studio/site-assistant/internal/agent/estimator"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	"github.com/launchkit-studio/site-assistant/internal/agent/repo"
	"github.com/launchkit-studio/site-assistant/internal/agent/session"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
)

const conv = "conv-1"

// scriptedRunner answers turns in order. Like the real graph it stores the
// visitor's query and any assistant message that hands calls to the chat.
type scriptedRunner struct {
	repo  model.ConversationRepository
	turns []*schema.Message

	mu     sync.Mutex
	inputs []model.QueryInput
}

func (r *scriptedRunner) Invoke(ctx context.Context, in model.QueryInput) (*schema.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	if len(r.turns) == 0 {
		return nil, errors.New("no scripted turn")
	}
	out := r.turns[0]
	r.turns = r.turns[1:]

	if in.Query != "" {
		_ = r.repo.AddMessage(ctx, in.ConversationID, schema.UserMessage(in.Query))
	}
	_ = r.repo.AddMessage(ctx, in.ConversationID, schema.AssistantMessage(out.Content, out.ToolCalls))
	return out, nil
}

func (r *scriptedRunner) Inputs() []model.QueryInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.QueryInput(nil), r.inputs...)
}

type fakeTools struct{}

func (fakeTools) IsClientTool(name string) bool { return name == "pricing_estimator" }

func (fakeTools) Execute(_ context.Context, call schema.ToolCall) *schema.Message {
	return schema.ToolMessage(`{"features":[]}`, call.ID, schema.WithToolName(call.Function.Name))
}

func (fakeTools) NormalizeArguments(_ context.Context, _, arguments string) string { return arguments }

// flakyRepo fails every write that carries a tool result while down is set.
type flakyRepo struct {
	*repo.MemoryConversationRepository
	down atomic.Bool
}

func (r *flakyRepo) AddMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error {
	for _, m := range messages {
		if m.Role == schema.Tool && r.down.Load() {
			return errors.New("redis down")
		}
	}
	return r.MemoryConversationRepository.AddMessages(ctx, conversationID, messages...)
}

func (r *flakyRepo) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	return r.AddMessages(ctx, conversationID, message)
}

func estimatorCall(id, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: "pricing_estimator", Arguments: args}}
}

type replies struct {
	mu  sync.Mutex
	got []*model.Reply
}

func (r *replies) handle(_ context.Context, reply *model.Reply) {
	r.mu.Lock()
	r.got = append(r.got, reply)
	r.mu.Unlock()
}

func (r *replies) all() []*model.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Reply(nil), r.got...)
}

func setup(turns ...*schema.Message) (*session.Host, *scriptedRunner, *repo.MemoryConversationRepository, *replies) {
	store := repo.NewMemoryConversationRepository()
	runner := &scriptedRunner{repo: store, turns: turns}
	rs := &replies{}
	host := session.New(runner, store, fakeTools{}, session.WithReplyHandler(rs.handle))
	return host, runner, store, rs
}

func scenarioConstants() model.PricingConstants {
	return model.PricingConstants{
		BasePrice:  1000,
		Complexity: model.MultiplierRange{Min: 1, Range: 1},
		Timeframe:  model.MultiplierRange{Min: 1, Range: 1},
		Currency:   "USD",
	}
}

func TestHost_Send(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("plain answer", func(t *testing.T) {
		t.Parallel()
		answer := schema.AssistantMessage("We build web apps.", nil)
		answer.Extra = map[string]any{model.ExtraUsageCostTotal: 0.002}
		host, runner, _, _ := setup(answer)

		reply, err := host.Send(ctx, conv, "What do you do?")
		require.NoError(t, err)
		assert.Equal(t, "We build web apps.", reply.Content)
		assert.Empty(t, reply.Invocations)
		assert.InDelta(t, 0.002, reply.CostUSD, 1e-12)
		assert.Equal(t, []model.QueryInput{{ConversationID: conv, Query: "What do you do?"}}, runner.Inputs())
	})

	t.Run("rejects empty query", func(t *testing.T) {
		t.Parallel()
		host, runner, _, _ := setup()
		_, err := host.Send(ctx, conv, "  ")
		assert.ErrorIs(t, err, errx.ErrValidation)
		assert.Equal(t, 400, errx.StatusOf(err, 0))
		assert.Empty(t, runner.Inputs())
	})

	t.Run("runner failure is a bad gateway", func(t *testing.T) {
		t.Parallel()
		host, _, _, _ := setup()
		_, err := host.Send(ctx, conv, "hi")
		require.Error(t, err)
		assert.Equal(t, 502, errx.StatusOf(err, 0))
	})

	t.Run("registers client invocations and runs server calls", func(t *testing.T) {
		t.Parallel()
		host, _, store, _ := setup(schema.AssistantMessage("Let me open the estimator.", []schema.ToolCall{
			{ID: "call_list", Function: schema.FunctionCall{Name: "list_estimator_features", Arguments: "{}"}},
			estimatorCall("call_est", `{"complexity":70}`),
		}))

		reply, err := host.Send(ctx, conv, "How much for a shop?")
		require.NoError(t, err)
		require.Len(t, reply.Invocations, 1)
		assert.Equal(t, model.CorrelationID("call_est"), reply.Invocations[0].ID)
		assert.JSONEq(t, `{"complexity":70}`, string(reply.Invocations[0].Arguments))

		pending, err := host.Pending(ctx, conv)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		hist, err := store.LoadHistory(ctx, conv)
		require.NoError(t, err)
		last := hist.Messages[len(hist.Messages)-1]
		assert.Equal(t, schema.Tool, last.Role)
		assert.Equal(t, "call_list", last.ToolCallID)
	})

	t.Run("new query dismisses open invocations", func(t *testing.T) {
		t.Parallel()
		host, runner, store, _ := setup(
			schema.AssistantMessage("", []schema.ToolCall{estimatorCall("call_1", "")}),
			schema.AssistantMessage("Sure, what else?", nil),
		)
		reply, err := host.Send(ctx, conv, "quote please")
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(reply.Invocations[0].Arguments))

		_, err = host.Send(ctx, conv, "actually, tell me about you")
		require.NoError(t, err)

		pending, _ := host.Pending(ctx, conv)
		assert.Empty(t, pending)
		assert.Len(t, runner.Inputs(), 2)

		hist, _ := store.LoadHistory(ctx, conv)
		var dismissed *schema.Message
		for _, m := range hist.Messages {
			if m.Role == schema.Tool && m.ToolCallID == "call_1" {
				dismissed = m
			}
		}
		require.NotNil(t, dismissed)
		assert.JSONEq(t, `{"success":false,"data":{"error":"Dismissed by the visitor"}}`, dismissed.Content)
	})
}

func TestHost_EstimatorRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	host, runner, store, rs := setup(
		schema.AssistantMessage("Here is the estimator.", []schema.ToolCall{estimatorCall("call_est", `{"complexity":50,"timeframe":50}`)}),
		schema.AssistantMessage("That comes to about 2,700 USD.", nil),
	)
	b := bridge.New()
	b.Set(host.ChatContext(conv))

	reply, err := host.Send(ctx, conv, "How much would a small app cost?")
	require.NoError(t, err)
	require.Len(t, reply.Invocations, 1)

	est := estimator.New(reply.Invocations[0], b, scenarioConstants(), estimator.Catalog{{ID: "a", Label: "A", Value: 200}})
	est.ToggleFeature("a")
	require.NoError(t, est.SubmitCurrent(ctx))

	inputs := runner.Inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, model.QueryInput{ConversationID: conv}, inputs[1])

	got := rs.all()
	require.Len(t, got, 1)
	assert.Equal(t, "That comes to about 2,700 USD.", got[0].Content)

	hist, err := store.LoadHistory(ctx, conv)
	require.NoError(t, err)
	var result *schema.Message
	for _, m := range hist.Messages {
		if m.Role == schema.Tool {
			result = m
		}
	}
	require.NotNil(t, result)
	assert.Equal(t, "call_est", result.ToolCallID)
	assert.Equal(t, "pricing_estimator", result.ToolName)

	var tr struct {
		Success bool                  `json:"success"`
		Data    model.EstimatePayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Content), &tr))
	assert.True(t, tr.Success)
	assert.Equal(t, int64(2700), tr.Data.Estimate)
	assert.Equal(t, "USD", tr.Data.Currency)
}

func TestHost_AddToolResult(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()
		host, _, _, _ := setup()
		err := host.AddToolResult(ctx, conv, model.ToolCallResult{Result: "{}"})
		assert.ErrorIs(t, err, errx.ErrMissingCorrelationID)
	})

	t.Run("unknown invocation", func(t *testing.T) {
		t.Parallel()
		host, runner, _, _ := setup()
		err := host.AddToolResult(ctx, conv, model.ToolCallResult{ToolCallID: "nope", Result: "{}"})
		assert.ErrorIs(t, err, errx.ErrUnknownInvocation)
		assert.Equal(t, 404, errx.StatusOf(err, 0))
		assert.Empty(t, runner.Inputs())
	})

	t.Run("waits for every pending invocation", func(t *testing.T) {
		t.Parallel()
		host, runner, _, rs := setup(
			schema.AssistantMessage("", []schema.ToolCall{estimatorCall("call_a", "{}"), estimatorCall("call_b", "{}")}),
			schema.AssistantMessage("Both in.", nil),
		)
		_, err := host.Send(ctx, conv, "compare two options")
		require.NoError(t, err)

		require.NoError(t, host.AddToolResult(ctx, conv, model.ToolCallResult{ToolCallID: "call_a", Result: `{"success":true}`}))
		assert.Len(t, runner.Inputs(), 1)
		assert.Empty(t, rs.all())

		require.NoError(t, host.AddToolResult(ctx, conv, model.ToolCallResult{ToolCallID: "call_b", Result: `{"success":true}`}))
		assert.Len(t, runner.Inputs(), 2)
		require.Len(t, rs.all(), 1)
		assert.Equal(t, "Both in.", rs.all()[0].Content)
	})

	t.Run("repeated submissions are recorded independently", func(t *testing.T) {
		t.Parallel()
		host, runner, store, rs := setup(
			schema.AssistantMessage("", []schema.ToolCall{estimatorCall("call_est", "{}")}),
			schema.AssistantMessage("About 2,700 USD.", nil),
			schema.AssistantMessage("With the new inputs, about 3,100 USD.", nil),
		)
		b := bridge.New()
		b.Set(host.ChatContext(conv))

		reply, err := host.Send(ctx, conv, "quote")
		require.NoError(t, err)
		est := estimator.New(reply.Invocations[0], b, scenarioConstants(), estimator.Catalog{{ID: "a", Value: 200}})

		require.NoError(t, est.Submit(ctx, model.EstimatorInput{Complexity: 50, Timeframe: 50, SelectedFeatures: []string{"a"}}))
		require.NoError(t, est.Submit(ctx, model.EstimatorInput{Complexity: 60, Timeframe: 50, SelectedFeatures: []string{"a"}}))

		assert.Len(t, runner.Inputs(), 3)
		assert.Len(t, rs.all(), 2)

		hist, _ := store.LoadHistory(ctx, conv)
		var results, calls int
		for _, m := range hist.Messages {
			if m.Role == schema.Tool && m.ToolCallID == "call_est" {
				results++
			}
			for _, c := range m.ToolCalls {
				if c.ID == "call_est" {
					calls++
				}
			}
		}
		assert.Equal(t, 2, results)
		assert.Equal(t, 2, calls)
	})
}

func TestHost_AddToolResult_FailedWriteStaysPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &flakyRepo{MemoryConversationRepository: repo.NewMemoryConversationRepository()}
	runner := &scriptedRunner{repo: store, turns: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{estimatorCall("call_est", "{}")}),
		schema.AssistantMessage("About 2,700 USD.", nil),
	}}
	rs := &replies{}
	host := session.New(runner, store, fakeTools{}, session.WithReplyHandler(rs.handle))

	_, err := host.Send(ctx, conv, "quote")
	require.NoError(t, err)

	store.down.Store(true)
	err = host.AddToolResult(ctx, conv, model.ToolCallResult{ToolCallID: "call_est", Result: `{"success":true}`})
	require.EqualError(t, err, "redis down")

	pending, err := host.Pending(ctx, conv)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.CorrelationID("call_est"), pending[0].ID)
	assert.Len(t, runner.Inputs(), 1)

	store.down.Store(false)
	require.NoError(t, host.AddToolResult(ctx, conv, model.ToolCallResult{ToolCallID: "call_est", Result: `{"success":true}`}))
	pending, _ = host.Pending(ctx, conv)
	assert.Empty(t, pending)
	require.Len(t, rs.all(), 1)

	hist, _ := host.History(ctx, conv)
	var calls, results int
	for _, m := range hist {
		calls += len(m.ToolCalls)
		if m.Role == schema.Tool {
			results++
		}
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, results)
}

func TestHost_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	host, _, _, _ := setup(schema.AssistantMessage("", []schema.ToolCall{estimatorCall("call_1", "{}")}))

	_, err := host.Send(ctx, conv, "quote")
	require.NoError(t, err)
	require.NoError(t, host.Reset(ctx, conv))

	hist, err := host.History(ctx, conv)
	require.NoError(t, err)
	assert.Empty(t, hist)
	pending, _ := host.Pending(ctx, conv)
	assert.Empty(t, pending)
}

func TestFormat(t *testing.T) {
	t.Parallel()
	out := session.Format(&model.Reply{
		Content:     " Opening the estimator. ",
		Invocations: []model.ToolInvocation{{ID: "call_1", Name: "pricing_estimator", Arguments: []byte(`{}`)}},
	})
	assert.Equal(t, "Opening the estimator.\n[pricing_estimator call_1 {}]", out)
}

func TestNewConversationID(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, session.NewConversationID(), session.NewConversationID())
}
