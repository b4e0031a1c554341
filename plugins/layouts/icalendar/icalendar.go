// Package icalendar serializes the resolved entries of a year as an
// iCalendar file with one all-day event per entry. Unlike the paper
// layouts it does not run a template, so it implements the provider
// interface directly.
package icalendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"calingen/internal/plugin"
)

const productID = "-//calingen//calingen//EN"

type layout struct{}

// Layout is the registered provider.
var Layout = layout{}

func (layout) ID() string    { return "layout.icalendar" }
func (layout) Title() string { return "iCalendar" }

func (layout) LayoutType() string { return "ical" }

func (layout) ConfigurationForm() *plugin.ConfigurationForm { return nil }

func (layout) Render(ctx *plugin.RenderContext) (string, error) {
	if ctx == nil || ctx.TargetYear == 0 {
		return "", plugin.ErrIncompleteContext
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(fmt.Sprintf("Calendar %d", ctx.TargetYear))

	now := time.Now().UTC()
	for _, entry := range ctx.Entries {
		ts := entry.Timestamp()
		uid := fmt.Sprintf("%s-%s@calingen", ts.Format("20060102"), slug(entry.Title()))
		event := cal.AddEvent(uid)
		event.SetDtStampTime(now)
		event.SetAllDayStartAt(ts)
		event.SetAllDayEndAt(ts.AddDate(0, 0, 1))
		event.SetSummary(entry.Title())
		event.SetDescription(string(entry.Category()))
	}

	return cal.Serialize(), nil
}

// slug reduces a title to the characters safe inside a UID.
func slug(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '-')
		}
	}
	return string(out)
}

func init() {
	plugin.Layouts.MustRegister(Layout)
}
