package tools

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/launchkit-studio/site-assistant/internal/content"
)

const maxDocumentBody = 6000

type GetSiteDocumentInput struct {
	Collection string `json:"collection"`
	Slug       string `json:"slug,omitempty"`
}

type SiteDocumentSummary struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type GetSiteDocumentOutput struct {
	Collection  string                `json:"collection"`
	Documents   []SiteDocumentSummary `json:"documents,omitempty"`
	Slug        string                `json:"slug,omitempty"`
	Title       string                `json:"title,omitempty"`
	LastUpdated string                `json:"last_updated,omitempty"`
	Body        string                `json:"body,omitempty"`
	Truncated   bool                  `json:"truncated,omitempty"`
}

func createGetSiteDocumentTool(lib *content.Library) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetSiteDocument,
			Desc: "Read the website's legal pages (privacy policy, terms) or company pages (about, process). Call with only a collection to list its documents, then with a slug to read one. Quote these documents instead of guessing policy details.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"collection": {
					Type:     schema.String,
					Desc:     "Which set of pages to read.",
					Enum:     []string{content.Legal, content.Company},
					Required: true,
				},
				"slug": {
					Type: schema.String,
					Desc: "Document slug from the listing (e.g. privacy-policy). Omit to list the collection.",
				},
			}),
		},
		func(ctx context.Context, in *GetSiteDocumentInput) (*GetSiteDocumentOutput, error) {
			if in.Collection == "" {
				return nil, fmt.Errorf("collection is required")
			}
			out := &GetSiteDocumentOutput{Collection: in.Collection}

			if in.Slug == "" {
				for _, d := range lib.Documents(in.Collection) {
					out.Documents = append(out.Documents, SiteDocumentSummary{
						Slug:        d.Slug,
						Title:       d.Title,
						Description: d.Description,
					})
				}
				return out, nil
			}

			d, ok := lib.Find(in.Collection, in.Slug)
			if !ok {
				return nil, fmt.Errorf("document not found: %s/%s", in.Collection, in.Slug)
			}
			out.Slug = d.Slug
			out.Title = d.Title
			if !d.LastUpdated.IsZero() {
				out.LastUpdated = d.LastUpdated.Format(content.DateLayout)
			}
			out.Body, out.Truncated = truncate(d.Body, maxDocumentBody)
			return out, nil
		},
	)
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}
