package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// EventCategory classifies a calendar entry.
//
// The known values are listed below, but the type is deliberately open:
// providers may contribute categories outside the known set and they are
// passed through unmodified.
type EventCategory string

const (
	CategoryAnnualAnniversary EventCategory = "ANNUAL_ANNIVERSARY"
	CategoryHoliday           EventCategory = "HOLIDAY"
)

// KnownCategories lists the categories shipped with the application.
func KnownCategories() []EventCategory {
	return []EventCategory{CategoryAnnualAnniversary, CategoryHoliday}
}

// OriginKind tags where a calendar entry came from.
type OriginKind string

const (
	// OriginInternal marks entries resolved from the user's stored events.
	// The source ref is the stored event's identifier.
	OriginInternal OriginKind = "INTERNAL"
	// OriginExternal marks entries contributed by an event provider plugin.
	// The source ref is the provider's title.
	OriginExternal OriginKind = "EXTERNAL"
)

// EntrySource is the two-part origin tag of a calendar entry.
type EntrySource struct {
	Kind OriginKind
	Ref  string
}

var (
	// ErrInvalidSource is returned when an entry is constructed with a
	// source tag whose kind is neither INTERNAL nor EXTERNAL.
	ErrInvalidSource = errors.New("model: entry source kind must be INTERNAL or EXTERNAL")
	// ErrEmptyEntry is returned when a zero-value entry is added to a list.
	ErrEmptyEntry = errors.New("model: cannot add empty calendar entry")
)

// CalendarEntry is one resolved calendar occurrence. It is immutable after
// construction.
//
// Identity (equality, dedup and ordering) is computed from the timestamp,
// category and title only. The source tag is deliberately excluded: an
// internally stored event and a provider-contributed event with identical
// timestamp, category and title collapse into one entry when merged.
type CalendarEntry struct {
	title     string
	category  EventCategory
	timestamp time.Time
	source    EntrySource
}

// NewCalendarEntry constructs a CalendarEntry.
//
// The timestamp is normalized to UTC so that value equality between entries
// from different sources behaves as expected. A date-only value keeps its
// midnight time.
func NewCalendarEntry(title string, category EventCategory, timestamp time.Time, source EntrySource) (CalendarEntry, error) {
	if source.Kind != OriginInternal && source.Kind != OriginExternal {
		return CalendarEntry{}, fmt.Errorf("%w: %q", ErrInvalidSource, source.Kind)
	}
	return CalendarEntry{
		title:     title,
		category:  category,
		timestamp: normalizeTimestamp(timestamp),
		source:    source,
	}, nil
}

// ParseTimestamp parses a timestamp from its string form. Both date-only
// ("2006-01-02") and full RFC 3339 values are accepted; date-only values
// resolve to midnight.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("model: unparseable timestamp %q: %w", value, err)
	}
	return t, nil
}

// normalizeTimestamp converts to UTC and strips the monotonic clock reading,
// making entries safe to compare with ==.
func normalizeTimestamp(t time.Time) time.Time {
	return t.Round(0).UTC()
}

func (e CalendarEntry) Title() string           { return e.title }
func (e CalendarEntry) Category() EventCategory { return e.category }
func (e CalendarEntry) Timestamp() time.Time    { return e.timestamp }
func (e CalendarEntry) Source() EntrySource     { return e.source }

// IsZero reports whether the entry is the zero value.
func (e CalendarEntry) IsZero() bool {
	return e == CalendarEntry{}
}

// Less imposes the total order used for the chronological projection:
// timestamp first, ties broken by category, then title.
func (e CalendarEntry) Less(other CalendarEntry) bool {
	if !e.timestamp.Equal(other.timestamp) {
		return e.timestamp.Before(other.timestamp)
	}
	if e.category != other.category {
		return e.category < other.category
	}
	return e.title < other.title
}

// entryKey is the identity of an entry: everything except the source tag.
type entryKey struct {
	timestamp time.Time
	category  EventCategory
	title     string
}

func (e CalendarEntry) key() entryKey {
	return entryKey{timestamp: e.timestamp, category: e.category, title: e.title}
}

// CalendarEntryList is a deduplicating, mergeable container of calendar
// entries. One list is created per generation request and discarded after
// rendering; lists are never shared across requests.
type CalendarEntryList struct {
	entries map[entryKey]CalendarEntry
}

// NewCalendarEntryList creates an empty list.
func NewCalendarEntryList() *CalendarEntryList {
	return &CalendarEntryList{entries: make(map[entryKey]CalendarEntry)}
}

// Add inserts an entry. Adding a zero-value entry is a caller bug and
// returns ErrEmptyEntry. Duplicates (by timestamp/category/title) collapse
// silently; the first inserted entry wins.
func (l *CalendarEntryList) Add(entry CalendarEntry) error {
	if entry.IsZero() {
		return ErrEmptyEntry
	}
	key := entry.key()
	if _, exists := l.entries[key]; !exists {
		l.entries[key] = entry
	}
	return nil
}

// Merge performs a set union with another list. Duplicates collapse
// silently. The other list is not modified.
func (l *CalendarEntryList) Merge(other *CalendarEntryList) {
	if other == nil {
		return
	}
	for key, entry := range other.entries {
		if _, exists := l.entries[key]; !exists {
			l.entries[key] = entry
		}
	}
}

// Len returns the number of distinct entries.
func (l *CalendarEntryList) Len() int {
	return len(l.entries)
}

// Sorted returns the entries ordered by timestamp, with ties broken by
// category and then title. The internal storage is not mutated; the method
// is safe to call repeatedly.
func (l *CalendarEntryList) Sorted() []CalendarEntry {
	out := make([]CalendarEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
