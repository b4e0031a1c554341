// Package icsfeed turns an external ICS subscription into an event
// provider: each configured feed contributes the events of the target year
// to the resolution pipeline.
package icsfeed

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "calingen/internal/log"
	"calingen/internal/model"
)

// Provider is an EventProvider backed by one ICS subscription. Providers
// are constructed from configuration at startup and registered explicitly
// (they depend on runtime config, unlike the compiled-in holiday tables).
type Provider struct {
	ident    string
	name     string
	url      string
	category model.EventCategory
	fetcher  *Fetcher
}

// New creates a provider for one feed. category defaults to HOLIDAY.
func New(id, name, url string, category model.EventCategory, cacheDir string) *Provider {
	if name == "" {
		name = id
	}
	if category == "" {
		category = model.CategoryHoliday
	}
	return &Provider{
		ident:    "icsfeed." + id,
		name:     name,
		url:      url,
		category: category,
		fetcher:  NewFetcher(cacheDir),
	}
}

func (p *Provider) ID() string    { return p.ident }
func (p *Provider) Title() string { return p.name }

func (p *Provider) Resolve(year int) (*model.CalendarEntryList, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		return nil, err
	}
	return EntriesFromICS(body, year, p.category, p.name)
}

// EntriesFromICS extracts the occurrences of one year from an ICS payload.
// Non-recurring events contribute their start date when it falls into the
// year; RRULE-based events are expanded within the year's bounds.
func EntriesFromICS(body []byte, year int, category model.EventCategory, sourceRef string) (*model.CalendarEntryList, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("icsfeed: parse: %w", err)
	}

	result := model.NewCalendarEntryList()
	source := model.EntrySource{Kind: model.OriginExternal, Ref: sourceRef}
	rangeStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	for _, comp := range cal.Events() {
		summaryProp := comp.GetProperty(ical.ComponentPropertySummary)
		if summaryProp == nil || summaryProp.Value == "" {
			continue
		}
		title := summaryProp.Value

		start, err := comp.GetStartAt()
		if err != nil {
			appLog.Debug("ics event without usable DTSTART", "summary", title)
			continue
		}

		var occurrences []time.Time
		if raw := comp.GetProperty(ical.ComponentPropertyRrule); raw != nil && raw.Value != "" {
			occurrences = expandRRule(raw.Value, start, rangeStart, rangeEnd, title)
		} else if !start.Before(rangeStart) && !start.After(rangeEnd) {
			occurrences = []time.Time{start}
		}

		for _, occ := range occurrences {
			day := time.Date(occ.Year(), occ.Month(), occ.Day(), 0, 0, 0, 0, time.UTC)
			entry, err := model.NewCalendarEntry(title, category, day, source)
			if err != nil {
				return nil, err
			}
			if err := result.Add(entry); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func expandRRule(raw string, dtstart, rangeStart, rangeEnd time.Time, title string) []time.Time {
	r, err := rrule.StrToRRule(raw)
	if err != nil {
		appLog.Error("ics event with malformed RRULE", err, "summary", title, "rrule", raw)
		return nil
	}
	r.DTStart(dtstart)
	return r.Between(rangeStart.In(dtstart.Location()), rangeEnd.In(dtstart.Location()), true)
}
