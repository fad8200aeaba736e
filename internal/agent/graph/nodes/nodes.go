package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/graph/conversations"
	"github.com/launchkit-studio/site-assistant/internal/agent/graph/prompts"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

const (
	NodeInputConverter    = "InputConverter"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
)

// ClientToolMatcher reports whether any call must be answered by the chat UI.
type ClientToolMatcher func(calls []schema.ToolCall) bool

// NewInputConverterPreHandler creates the pre-handler for InputConverter node
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if s.ConversationID == "" {
			s.ConversationID = in.ConversationID
		}
		// Reset tool call counter and limit flag for each new query
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode stores the visitor's query (if any) and assembles the
// response context. An empty query resumes after tool results were recorded.
func NewInputConverterNode(
	mm *conversations.MessagesManager,
	promptCfg *model.ResponsePromptConfig,
	withDocuments bool,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		if err := mm.SaveUserMessage(ctx, input.ConversationID, input.Query); err != nil {
			return nil, fmt.Errorf("save user message: %w", err)
		}

		// Rendered through the prompt component so prompt callbacks fire.
		systemPrompt, err := prompts.RenderResponseSystem(ctx, *promptCfg, withDocuments)
		if err != nil {
			return nil, fmt.Errorf("generate response prompt: %w", err)
		}

		messages, err := mm.BuildResponseContext(ctx, input.ConversationID, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("build response context: %w", err)
		}
		return messages, nil
	})
}

// NewResponseChatModelPreHandler creates the pre-handler for ResponseChatModel node
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	budget := newToolBudget(maxToolCalls)
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Tool results must carry the id of the call they answer.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if budget.exhausted(state) {
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please synthesize a helpful response using the information you've already gathered. "+
						"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
					int(budget),
				),
			}
			state.History = append(state.History, wrapUp)
		}

		logx.Debug().Str("conversation_id", state.ConversationID).Msg("AI thinking...")

		return keyResultsByName(state.History), nil
	}
}

// NewResponseChatModelPostHandler records usage cost, assigns tool call ids and
// persists what the transcript needs: final answers, and calls handed to the chat UI.
func NewResponseChatModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
	hasClientCall ClientToolMatcher,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("response model returned no message")
		}

		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			recordUsage(out, state, modelName)
		}

		// Gemini reports the function name as the call id. Results may arrive in a
		// later request, so every call gets an id unique to it.
		for i := range out.ToolCalls {
			out.ToolCalls[i].ID = newToolCallID()
		}

		if state.ToolCallLimitReached && len(out.ToolCalls) > 0 {
			logx.Warn().
				Str("conversation_id", state.ConversationID).
				Int("tool_count", len(out.ToolCalls)).
				Msg("Dropping tool calls issued after the limit")
			out.ToolCalls = nil
		}

		state.History = append(state.History, out)

		switch {
		case len(out.ToolCalls) > 0 && hasClientCall(out.ToolCalls):
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Handing tool calls to the chat")
			if err := mm.SaveToolCallMessage(ctx, state.ConversationID, out); err != nil {
				// Without this message the tool results could never be matched on resume.
				return nil, fmt.Errorf("save tool call message: %w", err)
			}
		case len(out.ToolCalls) > 0:
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		case strings.TrimSpace(out.Content) != "":
			logx.Debug().Msg("AI response ready")
			if err := mm.SaveResponse(ctx, state.ConversationID, out.Content); err != nil {
				logx.Error().
					Str("conversation_id", state.ConversationID).
					Err(err).
					Msg("Error saving assistant response in postHandlerResponse")
			}
		default:
			logx.Warn().Str("conversation_id", state.ConversationID).Msg("Empty assistant response")
		}

		return out, nil
	}
}

func recordUsage(out *schema.Message, state *model.AppState, modelName string) {
	usage := out.ResponseMeta.Usage
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(usage, pricing)
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra[model.ExtraUsageCost] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}
	logx.Debug().
		Str("conversation_id", state.ConversationID).
		Str("node", NodeResponseChatModel).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	state.TotalCostUSD += totalC
	out.Extra[model.ExtraUsageCostTotal] = state.TotalCostUSD
}

// NewToolExecutorCondition routes server-side calls to the tools node. Calls the
// chat UI must answer end the run; the conversation resumes once results arrive.
func NewToolExecutorCondition(hasClientCall ClientToolMatcher) func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		switch {
		case limitReached:
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		case len(input.ToolCalls) == 0:
			logx.Debug().Msg("No tool calls - continuing to end")
			return compose.END, nil
		case hasClientCall(input.ToolCalls):
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Client tool call - routing to end")
			return compose.END, nil
		}

		logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
		return NodeToolExecutor, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	budget := newToolBudget(maxToolCalls)
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := budget.spend(state)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("conversation_id", state.ConversationID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", int(budget)).
				Str("conversation_id", state.ConversationID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}
