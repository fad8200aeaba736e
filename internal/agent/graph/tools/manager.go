package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/agent/estimator"
	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	"github.com/launchkit-studio/site-assistant/internal/content"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

const (
	ToolPricingEstimator      = "pricing_estimator"
	ToolListEstimatorFeatures = "list_estimator_features"
	ToolGetSiteDocument       = "get_site_document"
)

// Deps are the data sources the server-side tools read.
type Deps struct {
	Catalog estimator.Catalog
	Pricing model.PricingConstants
	// Content is optional; without it get_site_document is not offered.
	Content *content.Library
}

// Set is the assistant's tool registry. Server tools run inside the graph;
// client tools are answered by the chat UI through the bridge.
type Set struct {
	server []tool.BaseTool
	byName map[string]tool.InvokableTool
	infos  []*schema.ToolInfo
	client map[string]struct{}
}

// NewSet builds the registry and resolves every tool's schema.
func NewSet(ctx context.Context, deps Deps) (*Set, error) {
	if deps.Catalog == nil {
		deps.Catalog = estimator.DefaultCatalog
	}

	server := []tool.BaseTool{
		createListEstimatorFeaturesTool(deps.Catalog, deps.Pricing),
	}
	if deps.Content != nil {
		server = append(server, createGetSiteDocumentTool(deps.Content))
	}

	s := &Set{
		server: server,
		byName: make(map[string]tool.InvokableTool, len(server)),
		client: map[string]struct{}{ToolPricingEstimator: {}},
	}
	for _, t := range server {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		it, ok := t.(tool.InvokableTool)
		if !ok {
			return nil, fmt.Errorf("tool %s is not invokable", info.Name)
		}
		s.byName[info.Name] = it
		s.infos = append(s.infos, info)
	}
	s.infos = append(s.infos, pricingEstimatorInfo(deps.Catalog))
	return s, nil
}

// ServerTools returns the tools executed by the graph's tools node.
func (s *Set) ServerTools() []tool.BaseTool { return s.server }

// ToolInfos returns the schemas bound to the chat model, client tools included.
func (s *Set) ToolInfos() []*schema.ToolInfo { return s.infos }

// HasTool reports whether name is offered to the model.
func (s *Set) HasTool(name string) bool {
	_, ok := s.byName[name]
	return ok || s.IsClientTool(name)
}

// IsClientTool reports whether name is answered by the chat UI.
func (s *Set) IsClientTool(name string) bool {
	_, ok := s.client[name]
	return ok
}

// HasClientCall reports whether any of the calls needs the chat UI.
func (s *Set) HasClientCall(calls []schema.ToolCall) bool {
	for _, c := range calls {
		if s.IsClientTool(c.Function.Name) {
			return true
		}
	}
	return false
}

// Execute runs one server-side call outside the graph and returns its tool message.
// Failures are reported to the model as a JSON error payload, never as an error.
func (s *Set) Execute(ctx context.Context, call schema.ToolCall) *schema.Message {
	name := call.Function.Name
	t, ok := s.byName[name]
	if !ok {
		out, _ := UnknownToolHandler(ctx, name, call.Function.Arguments)
		return schema.ToolMessage(out, call.ID, schema.WithToolName(name))
	}
	args, _ := SanitizeArguments(ctx, name, call.Function.Arguments)
	out, err := t.InvokableRun(ctx, args)
	if err != nil {
		logx.Warn().Err(err).Str("tool_name", name).Msg("tool execution failed")
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		out = string(b)
	}
	return schema.ToolMessage(out, call.ID, schema.WithToolName(name))
}

// NormalizeArguments returns a call's arguments as SanitizeArguments leaves
// them. Client calls use it since they never pass through the tools node.
func (s *Set) NormalizeArguments(ctx context.Context, name, arguments string) string {
	out, _ := SanitizeArguments(ctx, name, arguments)
	return out
}

// UnknownToolHandler gracefully answers hallucinated or malformed tool calls.
func UnknownToolHandler(ctx context.Context, name, input string) (string, error) {
	logx.Warn().
		Str("tool_name", name).
		Str("arguments", input).
		Msg("Unknown or invalid tool call; returning fallback result")
	return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
}

// SanitizeArguments normalizes model-provided arguments. It never fails:
// anything it cannot parse is passed through unchanged.
func SanitizeArguments(ctx context.Context, name, arguments string) (string, error) {
	if strings.TrimSpace(arguments) == "" {
		return "{}", nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments, nil
	}

	switch name {
	case ToolGetSiteDocument:
		for _, key := range []string{"collection", "slug"} {
			if v, ok := m[key]; ok {
				switch vv := v.(type) {
				case string:
					m[key] = strings.ToLower(strings.TrimSpace(vv))
				default:
					m[key] = strings.TrimSpace(fmt.Sprint(v))
				}
			}
		}
		if slug, ok := m["slug"].(string); ok {
			m["slug"] = strings.Trim(slug, "/")
		}
	case ToolPricingEstimator:
		for _, key := range []string{"complexity", "timeframe"} {
			if v, ok := m[key]; ok {
				switch vv := v.(type) {
				case float64:
					m[key] = sliderInt(vv)
				case string:
					if f, err := strconv.ParseFloat(strings.TrimSpace(vv), 64); err == nil && !math.IsNaN(f) {
						m[key] = sliderInt(f)
					} else {
						delete(m, key)
					}
				default:
					delete(m, key)
				}
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

// sliderInt clamps f into [0, 100] before truncating it.
func sliderInt(f float64) int {
	return int(math.Max(0, math.Min(100, f)))
}
