package content

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format of date front-matter fields.
const DateLayout = "2006-01-02"

// ErrSchema is wrapped by every front-matter validation failure.
var ErrSchema = errors.New("front-matter schema violation")

// FrontMatter is the YAML header of a document. Unknown keys land in Extra.
type FrontMatter struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	LastUpdated string         `yaml:"lastUpdated"`
	Extra       map[string]any `yaml:",inline"`
}

// Schema validates front-matter for one collection.
type Schema interface {
	Validate(fm FrontMatter) error
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc func(fm FrontMatter) error

func (f SchemaFunc) Validate(fm FrontMatter) error { return f(fm) }

// LegalSchema requires a title and a lastUpdated date.
var LegalSchema = SchemaFunc(func(fm FrontMatter) error {
	var errs []error
	if strings.TrimSpace(fm.Title) == "" {
		errs = append(errs, missing("title"))
	}
	if strings.TrimSpace(fm.LastUpdated) == "" {
		errs = append(errs, missing("lastUpdated"))
	} else if _, err := time.Parse(DateLayout, fm.LastUpdated); err != nil {
		errs = append(errs, fmt.Errorf("lastUpdated %q is not %s: %w", fm.LastUpdated, DateLayout, ErrSchema))
	}
	return errors.Join(errs...)
})

// CompanySchema requires a title and a description.
var CompanySchema = SchemaFunc(func(fm FrontMatter) error {
	var errs []error
	if strings.TrimSpace(fm.Title) == "" {
		errs = append(errs, missing("title"))
	}
	if strings.TrimSpace(fm.Description) == "" {
		errs = append(errs, missing("description"))
	}
	return errors.Join(errs...)
})

func missing(field string) error {
	return fmt.Errorf("%s is required: %w", field, ErrSchema)
}
