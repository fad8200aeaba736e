package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage adds a message to the conversation history for the given conversation
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// AddMessages appends messages in order as one write; either all are stored or none
	AddMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error

	// LoadHistory retrieves the conversation history for a conversation
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history and pending invocations for a conversation
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, conversationID string) (int, error)

	// AddPendingInvocation records a client-side tool call awaiting its result
	AddPendingInvocation(ctx context.Context, conversationID string, inv ToolInvocation) error

	// ResolvePendingInvocation removes the invocation and reports whether it was pending
	ResolvePendingInvocation(ctx context.Context, conversationID string, id CorrelationID) (bool, error)

	// ListPendingInvocations returns the invocations still awaiting results
	ListPendingInvocations(ctx context.Context, conversationID string) ([]ToolInvocation, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}
