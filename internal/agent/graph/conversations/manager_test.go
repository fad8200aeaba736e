package conversations_test

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-studio/site-assistant/internal/agent/graph/conversations"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	"github.com/launchkit-studio/site-assistant/internal/agent/repo"
)

func newManager(maxTurns int) (*conversations.MessagesManager, *repo.MemoryConversationRepository) {
	r := repo.NewMemoryConversationRepository()
	cfg := model.ConversationConfig{}
	cfg.History.MaxTurns = maxTurns
	return conversations.NewMessagesManager(r, cfg), r
}

func TestMessagesManager_BuildResponseContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("prepends system prompt", func(t *testing.T) {
		t.Parallel()
		mm, _ := newManager(10)
		require.NoError(t, mm.SaveUserMessage(ctx, "c1", "how much for a shop?"))
		require.NoError(t, mm.SaveUserMessage(ctx, "c1", "   "))

		msgs, err := mm.BuildResponseContext(ctx, "c1", "be helpful")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, schema.System, msgs[0].Role)
		assert.Equal(t, "how much for a shop?", msgs[1].Content)
	})

	t.Run("window skips orphaned tool results", func(t *testing.T) {
		t.Parallel()
		mm, r := newManager(3)
		call := schema.ToolCall{ID: "call_1", Function: schema.FunctionCall{Name: "pricing_estimator"}}
		require.NoError(t, mm.SaveUserMessage(ctx, "c1", "quote please"))
		require.NoError(t, mm.SaveToolCallMessage(ctx, "c1", schema.AssistantMessage("", []schema.ToolCall{call})))
		require.NoError(t, r.AddMessage(ctx, "c1", schema.ToolMessage(`{"success":true}`, "call_1")))
		require.NoError(t, mm.SaveResponse(ctx, "c1", "That comes to 2700 USD."))
		require.NoError(t, mm.SaveUserMessage(ctx, "c1", "thanks"))

		msgs, err := mm.BuildResponseContext(ctx, "c1", "sys")
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, schema.Assistant, msgs[1].Role)
		assert.Equal(t, "thanks", msgs[2].Content)
	})
}

func TestMessagesManager_SaveToolCallMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mm, r := newManager(10)

	out := schema.AssistantMessage("Let me open the estimator.", []schema.ToolCall{
		{ID: "call_1", Function: schema.FunctionCall{Name: "pricing_estimator", Arguments: `{"complexity":60}`}},
	})
	out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{TotalTokens: 42}}
	require.NoError(t, mm.SaveToolCallMessage(ctx, "c1", out))

	h, err := r.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)
	assert.Nil(t, h.Messages[0].ResponseMeta)
	require.Len(t, h.Messages[0].ToolCalls, 1)
	assert.Equal(t, "call_1", h.Messages[0].ToolCalls[0].ID)
}
