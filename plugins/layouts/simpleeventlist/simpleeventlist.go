// Package simpleeventlist renders all calendar entries of the target year
// as one TeX table, grouped by month.
package simpleeventlist

import (
	"embed"
	"text/template"
	"time"

	"calingen/internal/model"
	"calingen/internal/plugin"
	"calingen/internal/tex"
)

//go:embed templates
var templates embed.FS

var layoutTemplate = template.Must(
	template.New("simple_event_list.tex.tmpl").
		Funcs(tex.FuncMap()).
		ParseFS(templates, "templates/*.tmpl"))

// monthGroup is the per-month slice of the sorted entries, as consumed by
// the template.
type monthGroup struct {
	Month   time.Month
	Entries []model.CalendarEntry
}

func (g monthGroup) Name() string { return g.Month.String() }

func prepareContext(ctx *plugin.RenderContext) error {
	var months []*monthGroup
	var current *monthGroup

	// Entries arrive chronologically sorted, so one linear pass groups
	// them by month.
	for _, entry := range ctx.Entries {
		month := entry.Timestamp().Month()
		if current == nil || current.Month != month {
			current = &monthGroup{Month: month}
			months = append(months, current)
		}
		current.Entries = append(current.Entries, entry)
	}

	ctx.Prepared["months"] = months
	return nil
}

// Layout is the registered provider.
var Layout = &plugin.TemplateLayout{
	Ident:       "layout.simpleeventlist",
	Name:        "Simple Event List",
	PaperSize:   "a4",
	Orientation: "portrait",
	Type:        "tex",
	Template:    layoutTemplate,
	Prepare:     prepareContext,
}

func init() {
	plugin.Layouts.MustRegister(Layout)
}
