package plugin

import (
	"fmt"

	"calingen/internal/model"
	"calingen/internal/recurrence"
)

// EventProvider contributes calendar entries for a target year. Providers
// register themselves with the Events registry during application startup.
type EventProvider interface {
	Plugin

	// Resolve returns the provider's entries for the given year. All
	// entries carry an EXTERNAL source tag with the provider's title.
	Resolve(year int) (*model.CalendarEntryList, error)
}

// EntryDefinition is one declaratively defined recurring event: holiday
// tables are pure data, the resolution algorithm is shared infrastructure.
type EntryDefinition struct {
	Title    string
	Category model.EventCategory
	Rule     recurrence.Rule
}

// StaticEventProvider is an EventProvider backed by a fixed table of
// EntryDefinitions. It implements the default resolution algorithm:
// evaluate each rule within the target year and take the first occurrence
// (the shipped rules yield exactly one occurrence per year).
//
// Providers needing non-trivial logic implement EventProvider directly.
type StaticEventProvider struct {
	Ident   string
	Name    string
	Entries []EntryDefinition
}

func (p *StaticEventProvider) ID() string    { return p.Ident }
func (p *StaticEventProvider) Title() string { return p.Name }

func (p *StaticEventProvider) Resolve(year int) (*model.CalendarEntryList, error) {
	result := model.NewCalendarEntryList()
	source := model.EntrySource{Kind: model.OriginExternal, Ref: p.Name}

	for _, def := range p.Entries {
		occurrence, ok := def.Rule.Resolve(year)
		if !ok {
			continue
		}
		entry, err := model.NewCalendarEntry(def.Title, def.Category, occurrence, source)
		if err != nil {
			return nil, fmt.Errorf("plugin: provider %q entry %q: %w", p.Ident, def.Title, err)
		}
		if err := result.Add(entry); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// CombineEntries concatenates entry tables into a fresh slice. Composed
// providers (a base set plus regional additions) are built with this
// instead of chaining provider types.
func CombineEntries(sets ...[]EntryDefinition) []EntryDefinition {
	var out []EntryDefinition
	for _, set := range sets {
		out = append(out, set...)
	}
	return out
}
