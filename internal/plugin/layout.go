package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"

	"calingen/internal/model"
)

// FallbackLayoutType is the compiler-mapping slot reserved for the fallback
// compiler. No layout may declare it as its own type.
const FallbackLayoutType = "default"

// ErrIncompleteContext is returned when a layout is rendered without the
// required context values. Layouts fail loudly instead of silently
// producing an empty document.
var ErrIncompleteContext = errors.New("plugin: render context is missing required values")

// RenderContext carries everything a layout needs to produce its source
// text.
type RenderContext struct {
	// TargetYear is the year the document is generated for.
	TargetYear int
	// Entries is the merged, chronologically sorted set of calendar
	// entries (internal events plus active provider contributions).
	Entries []model.CalendarEntry
	// Configuration holds the cleaned values of the layout's
	// configuration form; nil when the layout declares no form.
	Configuration map[string]any
	// Prepared is populated by a layout's prepare hook (e.g. the entries
	// regrouped by week or month) and consumed by its template.
	Prepared map[string]any
}

// LayoutProvider renders the merged calendar entries into a textual
// document body in the provider's declared source language.
type LayoutProvider interface {
	Plugin

	// LayoutType identifies the output source language ("tex", "html",
	// "ical", "plain"). It drives compiler dispatch and must not be
	// FallbackLayoutType.
	LayoutType() string

	// ConfigurationForm returns the layout's configuration form, or nil
	// when the layout needs no extra configuration step.
	ConfigurationForm() *ConfigurationForm

	// Render produces the document source for the given context.
	Render(ctx *RenderContext) (string, error)
}

// TemplateLayout is a reusable LayoutProvider driven by a text template. A
// layout provides its metadata, optionally a configuration form and a
// prepare hook that reshapes the context before template execution.
type TemplateLayout struct {
	Ident       string
	Name        string
	PaperSize   string
	Orientation string
	Type        string

	// CustomTitle overrides the derived "<name> (<paper>, <orientation>)"
	// title when set.
	CustomTitle string

	Form     *ConfigurationForm
	Template *template.Template

	// Prepare reshapes the context before the template runs. Layouts that
	// need no reshaping leave it nil.
	Prepare func(ctx *RenderContext) error
}

func (l *TemplateLayout) ID() string { return l.Ident }

func (l *TemplateLayout) Title() string {
	if l.CustomTitle != "" {
		return l.CustomTitle
	}
	return fmt.Sprintf("%s (%s, %s)", l.Name, l.PaperSize, l.Orientation)
}

func (l *TemplateLayout) LayoutType() string                  { return l.Type }
func (l *TemplateLayout) ConfigurationForm() *ConfigurationForm { return l.Form }

func (l *TemplateLayout) Render(ctx *RenderContext) (string, error) {
	if ctx == nil || ctx.TargetYear == 0 {
		return "", ErrIncompleteContext
	}
	if ctx.Prepared == nil {
		ctx.Prepared = make(map[string]any)
	}
	if l.Prepare != nil {
		if err := l.Prepare(ctx); err != nil {
			return "", fmt.Errorf("plugin: layout %q prepare: %w", l.Ident, err)
		}
	}
	var buf bytes.Buffer
	if err := l.Template.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("plugin: layout %q render: %w", l.Ident, err)
	}
	return buf.String(), nil
}
