package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/launchkit-studio/site-assistant/internal/agent/bridge"
	"github.com/launchkit-studio/site-assistant/internal/agent/estimator"
	"github.com/launchkit-studio/site-assistant/internal/agent/graph"
	"github.com/launchkit-studio/site-assistant/internal/agent/graph/tools"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	"github.com/launchkit-studio/site-assistant/internal/agent/repo"
	"github.com/launchkit-studio/site-assistant/internal/agent/session"
	"github.com/launchkit-studio/site-assistant/internal/content"
	errx "github.com/launchkit-studio/site-assistant/internal/core/error"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

var version = "dev"

var defaultQueries = []string{
	"Hi! What kind of projects do you build?",
	"I need a booking app with payments and a CMS, fairly complex, in about two months. What would it cost?",
}

func main() {
	app := &cli.App{
		Name:    "site-assistant",
		Usage:   "Sales assistant, pricing estimator and site content for the marketing website",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before reading the environment",
			},
		},
		Commands: []*cli.Command{
			chatCommand(),
			estimateCommand(),
			contentCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Run a scripted conversation; estimator forms are filled from the flags",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "visitor message, repeatable (defaults to a short demo script)",
			},
			&cli.StringFlag{
				Name:  "conversation",
				Usage: "conversation id to continue (a new one by default)",
			},
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "keep the conversation in memory instead of Redis",
			},
			&cli.IntFlag{Name: "complexity", Usage: "estimator complexity 0-100 (overrides the assistant's pre-fill)"},
			&cli.IntFlag{Name: "timeframe", Usage: "estimator timeframe 0-100 (overrides the assistant's pre-fill)"},
			&cli.StringSliceFlag{Name: "feature", Usage: "estimator feature id to select, repeatable"},
		},
		Action: runChat,
	}
}

func runChat(c *cli.Context) error {
	ctx := c.Context
	cfg, err := loadConfig(c.String("env-file"))
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return cli.Exit("GEMINI_API_KEY is required for chat", 2)
	}

	lib, err := loadLibrary(cfg.Content)
	if err != nil {
		logx.Warn().Err(err).Msg("site content unavailable; get_site_document disabled")
		lib = nil
	}

	pricing := cfg.Pricing.Constants()
	catalog := estimator.DefaultCatalog
	set, err := tools.NewSet(ctx, tools.Deps{Catalog: catalog, Pricing: pricing, Content: lib})
	if err != nil {
		return err
	}

	var convRepo model.ConversationRepository
	if c.Bool("memory") {
		convRepo = repo.NewMemoryConversationRepository()
	} else {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		convRepo = repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL)
	}

	runner, err := graph.BuildResponseGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		ResponseModel:    cfg.Response,
		ResponsePrompt:   cfg.Prompt,
		Conversation:     cfg.Conversation,
		ConversationRepo: convRepo,
		Tools:            set,
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	host := session.New(runner, convRepo, set, session.WithReplyHandler(func(_ context.Context, r *model.Reply) {
		printReply(out, r)
	}))

	convID := c.String("conversation")
	if convID == "" {
		convID = session.NewConversationID()
	}
	b := bridge.New()
	b.Set(host.ChatContext(convID))
	ctx = bridge.WithBridge(ctx, b)

	queries := c.StringSlice("query")
	if len(queries) == 0 {
		queries = defaultQueries
	}

	fmt.Fprintf(out, "conversation %s\n\n", convID)
	for _, q := range queries {
		fmt.Fprintf(out, "visitor: %s\n", q)
		reply, err := host.Send(ctx, convID, q)
		if err != nil {
			return err
		}
		printReply(out, reply)

		for _, inv := range reply.Invocations {
			if inv.Name != tools.ToolPricingEstimator {
				continue
			}
			if err := fillEstimator(ctx, c, out, inv, pricing, catalog); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillEstimator plays the chat UI: it shows the form bound to inv, applies the
// flag values and submits it. The result reaches the host through the bridge.
func fillEstimator(ctx context.Context, c *cli.Context, out io.Writer, inv model.ToolInvocation, pricing model.PricingConstants, catalog estimator.Catalog) error {
	b, err := bridge.FromContext(ctx)
	if err != nil {
		return err
	}
	est := estimator.New(inv, b, pricing, catalog)

	values := est.Values()
	if c.IsSet("complexity") {
		values.Complexity = c.Int("complexity")
	}
	if c.IsSet("timeframe") {
		values.Timeframe = c.Int("timeframe")
	}
	est.SetValues(values)
	for _, f := range c.StringSlice("feature") {
		if !slices.Contains(est.Values().SelectedFeatures, f) {
			est.ToggleFeature(f)
		}
	}

	v := est.Values()
	fmt.Fprintf(out, "  [estimator %s] complexity=%d timeframe=%d features=%s\n",
		inv.ID, v.Complexity, v.Timeframe, strings.Join(v.SelectedFeatures, ","))

	if err := est.SubmitCurrent(ctx); err != nil {
		var verr *estimator.ValidationError
		if errors.As(err, &verr) {
			return cli.Exit(fmt.Sprintf("estimator form rejected: %v", verr), 2)
		}
		return err
	}
	return nil
}

func printReply(w io.Writer, r *model.Reply) {
	fmt.Fprintf(w, "assistant: %s\n", session.Format(r))
	if r.CostUSD > 0 {
		fmt.Fprintf(w, "  (model cost %.6f USD)\n", r.CostUSD)
	}
	fmt.Fprintln(w)
}

// =============================================================================
// ESTIMATE COMMAND
// =============================================================================

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Run the pricing estimator without the assistant and print its tool result",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "complexity", Value: estimator.DefaultComplexity, Usage: "complexity 0-100"},
			&cli.IntFlag{Name: "timeframe", Value: estimator.DefaultTimeframe, Usage: "timeframe 0-100, lower is faster"},
			&cli.StringSliceFlag{Name: "feature", Usage: "feature id, repeatable"},
			&cli.BoolFlag{Name: "list", Usage: "list the available features and exit"},
		},
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	cfg, err := loadConfig(c.String("env-file"))
	if err != nil {
		return err
	}
	out := c.App.Writer
	catalog := estimator.DefaultCatalog

	if c.Bool("list") {
		for _, f := range catalog {
			fmt.Fprintf(out, "%-14s %-28s %d %s\n", f.ID, f.Label, f.Value, cfg.Pricing.Currency)
		}
		return nil
	}

	b := bridge.New()
	b.Set(bridge.ChatContextFunc(func(_ context.Context, r model.ToolCallResult) error {
		var pretty map[string]any
		if err := json.Unmarshal([]byte(r.Result), &pretty); err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"toolCallId": r.ToolCallID, "toolName": r.ToolName, "result": pretty})
	}))

	inv := model.ToolInvocation{ID: model.CorrelationID("call_" + uuid.NewString()), Name: tools.ToolPricingEstimator}
	est := estimator.New(inv, b, cfg.Pricing.Constants(), catalog)

	err = est.Submit(c.Context, model.EstimatorInput{
		Complexity:       c.Int("complexity"),
		Timeframe:        c.Int("timeframe"),
		SelectedFeatures: c.StringSlice("feature"),
	})
	if errors.Is(err, errx.ErrValidation) {
		return cli.Exit(err.Error(), 2)
	}
	return err
}

// =============================================================================
// CONTENT COMMAND
// =============================================================================

func contentCommand() *cli.Command {
	return &cli.Command{
		Name:  "content",
		Usage: "List or render the legal and company pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "collection to show (legal, company)"},
			&cli.StringFlag{Name: "slug", Aliases: []string{"s"}, Usage: "document to render"},
			&cli.BoolFlag{Name: "source", Usage: "print the markdown source instead of HTML"},
		},
		Action: runContent,
	}
}

func runContent(c *cli.Context) error {
	cfg, err := loadConfig(c.String("env-file"))
	if err != nil {
		return err
	}
	lib, err := loadLibrary(cfg.Content)
	if err != nil {
		return err
	}
	out := c.App.Writer

	collection, slug := c.String("collection"), c.String("slug")
	if slug != "" {
		if collection == "" {
			return cli.Exit("--slug needs --collection", 2)
		}
		d, ok := lib.Find(collection, slug)
		if !ok {
			return cli.Exit(fmt.Sprintf("document %s/%s not found", collection, slug), 1)
		}
		if c.Bool("source") {
			fmt.Fprint(out, d.Body)
		} else {
			fmt.Fprint(out, d.HTML)
		}
		return nil
	}

	names := lib.Collections()
	if collection != "" {
		names = []string{collection}
	}
	for _, name := range names {
		fmt.Fprintf(out, "%s:\n", name)
		for _, d := range lib.Documents(name) {
			fmt.Fprintf(out, "  %-20s %s%s\n", d.Slug, d.Title, updated(d))
		}
	}
	return nil
}

func updated(d content.Document) string {
	if d.LastUpdated.IsZero() {
		return ""
	}
	return " (updated " + d.LastUpdated.Format(content.DateLayout) + ")"
}
