package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
)

// MemoryConversationRepository keeps conversations in process memory.
// It backs local demos and tests; nothing expires.
type MemoryConversationRepository struct {
	mu       sync.Mutex
	messages map[string][]*schema.Message
	pending  map[string]map[model.CorrelationID]model.ToolInvocation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		messages: map[string][]*schema.Message{},
		pending:  map[string]map[model.CorrelationID]model.ToolInvocation{},
	}
}

func (r *MemoryConversationRepository) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	return r.AddMessages(ctx, conversationID, message)
}

func (r *MemoryConversationRepository) AddMessages(_ context.Context, conversationID string, messages ...*schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[conversationID] = append(r.messages[conversationID], messages...)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]*schema.Message, len(r.messages[conversationID]))
	copy(msgs, r.messages[conversationID])
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, conversationID)
	delete(r.pending, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[conversationID]), nil
}

func (r *MemoryConversationRepository) AddPendingInvocation(_ context.Context, conversationID string, inv model.ToolInvocation) error {
	if inv.ID == "" {
		return errx.ErrMissingCorrelationID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[conversationID] == nil {
		r.pending[conversationID] = map[model.CorrelationID]model.ToolInvocation{}
	}
	r.pending[conversationID][inv.ID] = inv
	return nil
}

func (r *MemoryConversationRepository) ResolvePendingInvocation(_ context.Context, conversationID string, id model.CorrelationID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[conversationID][id]; !ok {
		return false, nil
	}
	delete(r.pending[conversationID], id)
	return true, nil
}

func (r *MemoryConversationRepository) ListPendingInvocations(_ context.Context, conversationID string) ([]model.ToolInvocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ToolInvocation, 0, len(r.pending[conversationID]))
	for _, inv := range r.pending[conversationID] {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
