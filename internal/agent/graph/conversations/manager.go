package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.History.MaxTurns,
	}
}

// SaveUserMessage appends the visitor's message; blank queries are not stored.
func (cm *MessagesManager) SaveUserMessage(ctx context.Context, conversationID, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query))
}

// BuildResponseContext returns the system prompt followed by the recent history.
func (cm *MessagesManager) BuildResponseContext(ctx context.Context, conversationID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	messages = append(messages, trimTail(history.Messages, cm.maxTurns)...)

	return messages, nil
}

func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, conversationID, assistantMsg)
}

// SaveToolCallMessage stores an assistant message that hands tool calls to the chat UI.
// Usage metadata is dropped; only what the model needs on resume is kept.
func (cm *MessagesManager) SaveToolCallMessage(ctx context.Context, conversationID string, msg *schema.Message) error {
	calls := make([]schema.ToolCall, len(msg.ToolCalls))
	copy(calls, msg.ToolCalls)
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.AssistantMessage(msg.Content, calls))
}

// ====================== Helper function ======================

// trimTail keeps the last maxTurns messages. The window never starts on a
// tool result, since its assistant tool call would have been cut off.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	start := 0
	if maxTurns > 0 && len(messages) > maxTurns {
		start = len(messages) - maxTurns
	}
	for start < len(messages) && messages[start] != nil && messages[start].Role == schema.Tool {
		start++
	}
	result := make([]*schema.Message, len(messages)-start)
	copy(result, messages[start:])
	return result
}
