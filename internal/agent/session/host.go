// Package session hosts chat conversations: it runs assistant turns, tracks the
// tool calls the chat UI has to answer and resumes the turn once they are.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/launchkit-studio/site-assistant/internal/agent/bridge"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

// DismissedMessage is the error recorded for invocations the visitor moved past.
const DismissedMessage = "Dismissed by the visitor"

// Runner runs one assistant turn. An empty query resumes the conversation.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*schema.Message, error)
}

// ToolExecutor runs server-side tool calls that arrive next to client ones and
// normalizes the arguments of the calls handed to the chat UI.
type ToolExecutor interface {
	IsClientTool(name string) bool
	Execute(ctx context.Context, call schema.ToolCall) *schema.Message
	NormalizeArguments(ctx context.Context, name, arguments string) string
}

// ReplyHandler receives replies produced by resumed turns.
type ReplyHandler func(ctx context.Context, reply *model.Reply)

type Option func(*Host)

// WithReplyHandler sets where replies to resumed turns are delivered.
func WithReplyHandler(f ReplyHandler) Option {
	return func(h *Host) { h.onReply = f }
}

// Host owns the conversations. It is safe for concurrent use; turns within one
// conversation are serialized.
type Host struct {
	runner  Runner
	repo    model.ConversationRepository
	tools   ToolExecutor
	onReply ReplyHandler
	log     zerolog.Logger

	locks sync.Map // conversation id -> *sync.Mutex
}

func New(runner Runner, repo model.ConversationRepository, tools ToolExecutor, opts ...Option) *Host {
	h := &Host{
		runner: runner,
		repo:   repo,
		tools:  tools,
		log:    logx.With("session"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewConversationID returns a fresh conversation id.
func NewConversationID() string {
	return uuid.NewString()
}

// ChatContext returns the capability the bridge relays tool results to.
func (h *Host) ChatContext(conversationID string) bridge.ChatContext {
	return bridge.ChatContextFunc(func(ctx context.Context, result model.ToolCallResult) error {
		return h.AddToolResult(ctx, conversationID, result)
	})
}

// Send records the visitor's query and runs an assistant turn. Invocations
// left unanswered from the previous turn are closed as dismissed first.
func (h *Host) Send(ctx context.Context, conversationID, query string) (*model.Reply, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errx.New(errx.ErrValidation, http.StatusBadRequest, "conversation id is required")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errx.New(errx.ErrValidation, http.StatusBadRequest, "query is required")
	}

	unlock := h.lock(conversationID)
	defer unlock()

	if err := h.dismissPending(ctx, conversationID); err != nil {
		return nil, err
	}
	return h.run(ctx, model.QueryInput{ConversationID: conversationID, Query: query})
}

// AddToolResult appends a tool result to the transcript. Each call is recorded on
// its own, including repeated results for the same invocation. Once nothing is
// pending the turn resumes and its reply goes to the ReplyHandler.
func (h *Host) AddToolResult(ctx context.Context, conversationID string, result model.ToolCallResult) error {
	if strings.TrimSpace(result.ToolCallID.String()) == "" {
		return errx.ErrMissingCorrelationID
	}

	reply, err := h.recordResult(ctx, conversationID, result)
	if err != nil || reply == nil {
		return err
	}
	if h.onReply != nil {
		h.onReply(ctx, reply)
	}
	return nil
}

// History returns the stored transcript.
func (h *Host) History(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	hist, err := h.repo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return hist.Messages, nil
}

// Pending returns the invocations still waiting on the chat UI.
func (h *Host) Pending(ctx context.Context, conversationID string) ([]model.ToolInvocation, error) {
	return h.repo.ListPendingInvocations(ctx, conversationID)
}

// Reset forgets the conversation.
func (h *Host) Reset(ctx context.Context, conversationID string) error {
	unlock := h.lock(conversationID)
	defer unlock()
	return h.repo.ClearHistory(ctx, conversationID)
}

func (h *Host) recordResult(ctx context.Context, conversationID string, result model.ToolCallResult) (*model.Reply, error) {
	unlock := h.lock(conversationID)
	defer unlock()

	log := h.log.With().Str("conversation_id", conversationID).Str("tool_call_id", result.ToolCallID.String()).Logger()

	hist, err := h.repo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	call, ok := findToolCall(hist.Messages, result.ToolCallID)
	if !ok {
		log.Warn().Msg("tool result for unknown invocation")
		return nil, errx.New(errx.ErrUnknownInvocation, http.StatusNotFound, "unknown tool call "+result.ToolCallID.String())
	}

	pending, err := h.repo.ListPendingInvocations(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	wasPending := slices.ContainsFunc(pending, func(inv model.ToolInvocation) bool { return inv.ID == result.ToolCallID })

	// The transcript is written before the invocation is resolved, so a failed
	// write leaves it pending and the visitor can submit again.
	var msgs []*schema.Message
	if !wasPending {
		// Already answered: repeat the call so the new result has a call to pair with.
		log.Info().Msg("repeated tool result; re-issuing the call in the transcript")
		msgs = append(msgs, schema.AssistantMessage("", []schema.ToolCall{call}))
	}
	name := result.ToolName
	if name == "" {
		name = call.Function.Name
	}
	msgs = append(msgs, schema.ToolMessage(result.Result, result.ToolCallID.String(), schema.WithToolName(name)))
	if err := h.repo.AddMessages(ctx, conversationID, msgs...); err != nil {
		return nil, err
	}

	if wasPending {
		if _, err := h.repo.ResolvePendingInvocation(ctx, conversationID, result.ToolCallID); err != nil {
			return nil, err
		}
		if pending, err = h.repo.ListPendingInvocations(ctx, conversationID); err != nil {
			return nil, err
		}
	}
	if len(pending) > 0 {
		log.Debug().Int("pending", len(pending)).Msg("waiting for remaining tool results")
		return nil, nil
	}
	return h.run(ctx, model.QueryInput{ConversationID: conversationID})
}

// run executes one turn and registers the client calls it ends on.
func (h *Host) run(ctx context.Context, in model.QueryInput) (*model.Reply, error) {
	out, err := h.runner.Invoke(ctx, in)
	if err != nil {
		h.log.Error().Err(err).Str("conversation_id", in.ConversationID).Msg("assistant turn failed")
		return nil, errx.New(err, http.StatusBadGateway, errx.SystemErrorMessage)
	}

	reply := &model.Reply{
		ConversationID: in.ConversationID,
		Content:        out.Content,
	}
	if v, ok := out.Extra[model.ExtraUsageCostTotal].(float64); ok {
		reply.CostUSD = v
	}

	for _, call := range out.ToolCalls {
		if !h.tools.IsClientTool(call.Function.Name) {
			msg := h.tools.Execute(ctx, call)
			if err := h.repo.AddMessage(ctx, in.ConversationID, msg); err != nil {
				return nil, err
			}
			continue
		}

		inv := model.ToolInvocation{
			ID:        model.CorrelationID(call.ID),
			Name:      call.Function.Name,
			Arguments: rawArguments(h.tools.NormalizeArguments(ctx, call.Function.Name, call.Function.Arguments)),
		}
		if err := h.repo.AddPendingInvocation(ctx, in.ConversationID, inv); err != nil {
			return nil, err
		}
		reply.Invocations = append(reply.Invocations, inv)
	}

	h.log.Debug().
		Str("conversation_id", in.ConversationID).
		Bool("resumed", in.Query == "").
		Int("invocations", len(reply.Invocations)).
		Float64("cost_usd", reply.CostUSD).
		Msg("assistant turn finished")
	return reply, nil
}

func (h *Host) dismissPending(ctx context.Context, conversationID string) error {
	pending, err := h.repo.ListPendingInvocations(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	res := model.NewToolResult(false, map[string]string{"error": DismissedMessage}).String()
	msgs := make([]*schema.Message, 0, len(pending))
	for _, inv := range pending {
		msgs = append(msgs, schema.ToolMessage(res, inv.ID.String(), schema.WithToolName(inv.Name)))
	}
	if err := h.repo.AddMessages(ctx, conversationID, msgs...); err != nil {
		return err
	}
	for _, inv := range pending {
		if _, err := h.repo.ResolvePendingInvocation(ctx, conversationID, inv.ID); err != nil {
			return err
		}
		h.log.Debug().Str("conversation_id", conversationID).Str("tool_call_id", inv.ID.String()).Msg("pending invocation dismissed")
	}
	return nil
}

func (h *Host) lock(conversationID string) func() {
	v, _ := h.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func findToolCall(msgs []*schema.Message, id model.CorrelationID) (schema.ToolCall, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Role != schema.Assistant {
			continue
		}
		for _, c := range m.ToolCalls {
			if c.ID == id.String() {
				return c, true
			}
		}
	}
	return schema.ToolCall{}, false
}

func rawArguments(args string) json.RawMessage {
	args = strings.TrimSpace(args)
	if args == "" || !json.Valid([]byte(args)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}

// Format renders a reply for terminal output.
func Format(r *model.Reply) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Content))
	for _, inv := range r.Invocations {
		fmt.Fprintf(&b, "\n[%s %s %s]", inv.Name, inv.ID, string(inv.Arguments))
	}
	return b.String()
}
