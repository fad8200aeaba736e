// Package content loads the site's legal and company documents: YAML
// front-matter plus a markdown body rendered to HTML.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
)

const (
	Legal   = "legal"
	Company = "company"

	// DefaultInclude selects every document under a collection directory.
	DefaultInclude = "**/*.mdx"
)

var (
	ErrNoFrontMatter = errors.New("missing front-matter")
	ErrDuplicateSlug = errors.New("duplicate slug")
)

// Collection is a named set of documents under one directory.
type Collection struct {
	Name      string
	Directory string
	Include   string
	Schema    Schema
}

// Document is one loaded, validated and rendered source file.
type Document struct {
	Collection  string
	Slug        string
	Path        string
	Title       string
	Description string
	LastUpdated time.Time
	FrontMatter FrontMatter
	Body        string
	HTML        string
}

// DefaultCollections returns the legal and company collections rooted at the given dirs.
func DefaultCollections(legalDir, companyDir string) []Collection {
	return []Collection{
		{Name: Legal, Directory: legalDir, Include: DefaultInclude, Schema: LegalSchema},
		{Name: Company, Directory: companyDir, Include: DefaultInclude, Schema: CompanySchema},
	}
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// Load reads every file of the collection matching its include pattern.
// All schema errors are reported together.
func (c Collection) Load(fsys fs.FS) ([]Document, error) {
	include := c.Include
	if include == "" {
		include = DefaultInclude
	}
	sub, err := fs.Sub(fsys, c.Directory)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", c.Name, err)
	}
	matches, err := doublestar.Glob(sub, include, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("collection %s: glob %q: %w", c.Name, include, err)
	}
	sort.Strings(matches)

	docs := make([]Document, 0, len(matches))
	seen := make(map[string]string, len(matches))
	var errs []error
	for _, p := range matches {
		doc, err := c.loadDocument(sub, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", c.Name, p, err))
			continue
		}
		if prev, dup := seen[doc.Slug]; dup {
			errs = append(errs, fmt.Errorf("%s/%s: %w %q (also %s)", c.Name, p, ErrDuplicateSlug, doc.Slug, prev))
			continue
		}
		seen[doc.Slug] = p
		docs = append(docs, doc)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	logx.Debug().Str("collection", c.Name).Int("documents", len(docs)).Msg("content collection loaded")
	return docs, nil
}

func (c Collection) loadDocument(fsys fs.FS, p string) (Document, error) {
	raw, err := fs.ReadFile(fsys, p)
	if err != nil {
		return Document{}, err
	}
	header, body, err := splitFrontMatter(raw)
	if err != nil {
		return Document{}, err
	}

	var fm FrontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return Document{}, fmt.Errorf("parse front-matter: %w", err)
	}
	if c.Schema != nil {
		if err := c.Schema.Validate(fm); err != nil {
			return Document{}, err
		}
	}

	rendered, err := Render(body)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Collection:  c.Name,
		Slug:        strings.TrimSuffix(p, path.Ext(p)),
		Path:        path.Join(c.Directory, p),
		Title:       fm.Title,
		Description: fm.Description,
		FrontMatter: fm,
		Body:        string(body),
		HTML:        rendered,
	}
	if fm.LastUpdated != "" {
		if t, err := time.Parse(DateLayout, fm.LastUpdated); err == nil {
			doc.LastUpdated = t
		}
	}
	return doc, nil
}

// Render converts a markdown body to HTML.
func Render(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the body.
func splitFrontMatter(raw []byte) (header, body []byte, err error) {
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, nil, ErrNoFrontMatter
	}
	rest := text[len("---\n"):]
	if strings.HasPrefix(rest, "---") {
		rest = "\n" + rest
	}
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, nil, fmt.Errorf("unterminated front-matter: %w", ErrNoFrontMatter)
	}
	header = []byte(rest[:end])
	after := rest[end+len("\n---"):]
	if nl := strings.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = ""
	}
	return header, []byte(strings.TrimLeft(after, "\n")), nil
}
