// Package bridge relays tool results from form handlers back to the chat
// session that owns the conversation, without the handlers holding the session.
package bridge

import (
	"context"
	"strings"
	"sync"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
)

// ChatContext is the capability the top-level chat registers.
type ChatContext interface {
	AddToolResult(ctx context.Context, result model.ToolCallResult) error
}

// ChatContextFunc adapts a function to ChatContext.
type ChatContextFunc func(ctx context.Context, result model.ToolCallResult) error

func (f ChatContextFunc) AddToolResult(ctx context.Context, result model.ToolCallResult) error {
	return f(ctx, result)
}

// Bridge holds the most recently registered ChatContext. The zero value is
// ready to use and reports ErrContextNotInitialized until Set is called.
type Bridge struct {
	mu   sync.RWMutex
	chat ChatContext
}

func New() *Bridge { return &Bridge{} }

// Set replaces the registered chat. Last writer wins.
func (b *Bridge) Set(chat ChatContext) {
	b.mu.Lock()
	b.chat = chat
	b.mu.Unlock()
}

// Get returns the registered chat or errx.ErrContextNotInitialized.
func (b *Bridge) Get() (ChatContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.chat == nil {
		return nil, errx.ErrContextNotInitialized
	}
	return b.chat, nil
}

// Ready reports whether a chat has been registered.
func (b *Bridge) Ready() bool {
	_, err := b.Get()
	return err == nil
}

// SubmitResult forwards a stringified result for the given tool call.
func (b *Bridge) SubmitResult(ctx context.Context, id model.CorrelationID, toolName string, result model.ToolResult) error {
	if strings.TrimSpace(id.String()) == "" {
		return errx.ErrMissingCorrelationID
	}
	chat, err := b.Get()
	if err != nil {
		return err
	}
	return chat.AddToolResult(ctx, model.ToolCallResult{
		ToolCallID: id,
		ToolName:   toolName,
		Result:     result.String(),
	})
}

type ctxKey struct{}

// WithBridge returns a context carrying b.
func WithBridge(ctx context.Context, b *Bridge) context.Context {
	return context.WithValue(ctx, ctxKey{}, b)
}

// FromContext returns the bridge carried by ctx, or ErrContextNotInitialized.
func FromContext(ctx context.Context) (*Bridge, error) {
	b, ok := ctx.Value(ctxKey{}).(*Bridge)
	if !ok || b == nil {
		return nil, errx.ErrContextNotInitialized
	}
	return b, nil
}
