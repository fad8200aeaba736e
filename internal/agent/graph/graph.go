// Package graph assembles the assistant turn: the visitor query goes through
// the Gemini response model, server tools loop back into the model, and the
// turn ends on a final answer or on a tool call the chat UI must answer.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/graph/conversations"
	"github.com/launchkit-studio/site-assistant/internal/agent/graph/nodes"
	"github.com/launchkit-studio/site-assistant/internal/agent/graph/observers"
	"github.com/launchkit-studio/site-assistant/internal/agent/graph/tools"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

const graphName = "site-assistant"

type turnGraph = compose.Graph[model.QueryInput, *schema.Message]

// Runnable is the compiled turn.
type Runnable = compose.Runnable[model.QueryInput, *schema.Message]

// Runner runs one conversation turn. The message it returns is the last
// assistant message; client tool calls on it are waiting on the chat UI.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*schema.Message, error)
}

// Config is what BuildResponseGraph needs from the application.
type Config struct {
	APIKey           string
	BaseURL          string
	ResponseModel    model.ResponseModelConfig
	ResponsePrompt   model.ResponsePromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	Tools            *tools.Set
}

// Parts are the already constructed pieces the graph is compiled from.
type Parts struct {
	Model    *nodes.ResponseModel
	Messages *conversations.MessagesManager
	Prompt   model.ResponsePromptConfig
	Tools    *tools.Set
	// MaxToolRuns bounds the model/tools loop per turn.
	MaxToolRuns int
}

func (p *Parts) validate() error {
	switch {
	case p == nil:
		return errors.New("graph parts are nil")
	case p.Model == nil || p.Model.Model == nil:
		return errors.New("response model is not initialised")
	case p.Messages == nil:
		return errors.New("messages manager is nil")
	case p.Tools == nil:
		return errors.New("tool set is nil")
	}
	return nil
}

// BuildResponseGraph creates the Gemini model and transcript manager, then
// compiles the turn graph around them.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, errors.New("conversation repo is nil")
	}
	if cfg.Tools == nil {
		return nil, errors.New("tool set is nil")
	}

	rm, err := nodes.NewResponseModel(ctx, nodes.GeminiConfig{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Response: cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	runnable, err := Compile(ctx, &Parts{
		Model:       rm,
		Messages:    conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation),
		Prompt:      cfg.ResponsePrompt,
		Tools:       cfg.Tools,
		MaxToolRuns: cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("model", rm.Name).
		Int("tools", len(cfg.Tools.ToolInfos())).
		Msg("Response graph ready")
	return NewRunner(runnable), nil
}

// Compile wires the nodes and branches and compiles the graph.
func Compile(ctx context.Context, parts *Parts) (Runnable, error) {
	if err := parts.validate(); err != nil {
		return nil, err
	}

	g := compose.NewGraph[model.QueryInput, *schema.Message](
		compose.WithGenLocalState(func(context.Context) *model.AppState {
			return &model.AppState{}
		}),
	)

	for _, step := range []struct {
		name string
		add  func(context.Context, *turnGraph, *Parts) error
	}{
		{"input", addInput},
		{"response model", addResponseModel},
		{"tools", addTools},
		{"edges", addEdges},
	} {
		if err := step.add(ctx, g, parts); err != nil {
			logx.Error().Err(err).Str("step", step.name).Msg("Graph assembly failed")
			return nil, fmt.Errorf("graph %s: %w", step.name, err)
		}
	}

	// Each tool round costs two steps (model + tools) on top of the fixed path.
	maxSteps := max(20, 10+2*parts.MaxToolRuns)
	runnable, err := g.Compile(ctx,
		compose.WithGraphName(graphName),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Graph compile failed")
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	return runnable, nil
}

func addInput(_ context.Context, g *turnGraph, p *Parts) error {
	prompt := p.Prompt
	withDocuments := p.Tools.HasTool(tools.ToolGetSiteDocument)
	return g.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(p.Messages, &prompt, withDocuments),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
	)
}

// addResponseModel binds every tool schema, client tools included, so the
// model can emit pricing_estimator calls the tools node never runs.
func addResponseModel(_ context.Context, g *turnGraph, p *Parts) error {
	if err := p.Model.BindTools(p.Tools.ToolInfos()); err != nil {
		return err
	}
	return g.AddChatModelNode(nodes.NodeResponseChatModel, p.Model.Model,
		compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(p.MaxToolRuns)),
		compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(
			p.Messages,
			p.Model.Name,
			p.Tools.HasClientCall,
		)),
	)
}

func addTools(ctx context.Context, g *turnGraph, p *Parts) error {
	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                p.Tools.ServerTools(),
		ExecuteSequentially:  true,
		UnknownToolsHandler:  tools.UnknownToolHandler,
		ToolArgumentsHandler: tools.SanitizeArguments,
	})
	if err != nil {
		return err
	}
	return g.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(p.MaxToolRuns)),
	)
}

func addEdges(_ context.Context, g *turnGraph, p *Parts) error {
	for _, e := range [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeResponseChatModel},
		{nodes.NodeToolExecutor, nodes.NodeResponseChatModel},
	} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return fmt.Errorf("%s -> %s: %w", e[0], e[1], err)
		}
	}

	next := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(p.Tools.HasClientCall),
		map[string]bool{nodes.NodeToolExecutor: true, compose.END: true},
	)
	return g.AddBranch(nodes.NodeResponseChatModel, next)
}

type turnRunner struct {
	runnable Runnable
}

// NewRunner runs turns on a compiled graph with the logging callbacks attached.
func NewRunner(runnable Runnable) Runner {
	return turnRunner{runnable: runnable}
}

func (r turnRunner) Invoke(ctx context.Context, in model.QueryInput) (*schema.Message, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return schema.AssistantMessage("", nil), nil
	}
	return out, nil
}
