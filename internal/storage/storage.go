package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"calingen/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Event is one manually entered recurring event. The stored month/day
// recurs annually; Start keeps the originally entered date (e.g. the year
// of birth for an anniversary).
type Event struct {
	ID       string
	User     string
	Title    string
	Category model.EventCategory
	Start    time.Time
}

// Store is the SQLite-backed persistence layer for events and profiles.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id       TEXT PRIMARY KEY,
	user     TEXT NOT NULL,
	title    TEXT NOT NULL,
	category TEXT NOT NULL,
	start    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_user ON events(user);

CREATE TABLE IF NOT EXISTS profiles (
	user            TEXT PRIMARY KEY,
	event_providers TEXT NOT NULL DEFAULT '{}'
);
`

// Open opens (and creates, if necessary) the database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage: database path is empty")
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateEvent stores a new event, assigning an ID when none is set.
func (s *Store) CreateEvent(ev Event) (Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.User == "" || ev.Title == "" {
		return Event{}, errors.New("storage: event needs user and title")
	}
	if ev.Category == "" {
		ev.Category = model.CategoryAnnualAnniversary
	}
	_, err := s.db.Exec(
		`INSERT INTO events (id, user, title, category, start) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.User, ev.Title, string(ev.Category), ev.Start.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return Event{}, fmt.Errorf("storage: create event: %w", err)
	}
	return ev, nil
}

// UpdateEvent rewrites an existing event owned by ev.User.
func (s *Store) UpdateEvent(ev Event) error {
	res, err := s.db.Exec(
		`UPDATE events SET title = ?, category = ?, start = ? WHERE id = ? AND user = ?`,
		ev.Title, string(ev.Category), ev.Start.UTC().Format(time.RFC3339), ev.ID, ev.User,
	)
	if err != nil {
		return fmt.Errorf("storage: update event: %w", err)
	}
	return affectedOrNotFound(res)
}

// DeleteEvent removes an event owned by user.
func (s *Store) DeleteEvent(user, id string) error {
	res, err := s.db.Exec(`DELETE FROM events WHERE id = ? AND user = ?`, id, user)
	if err != nil {
		return fmt.Errorf("storage: delete event: %w", err)
	}
	return affectedOrNotFound(res)
}

// GetEvent fetches one event owned by user.
func (s *Store) GetEvent(user, id string) (Event, error) {
	row := s.db.QueryRow(
		`SELECT id, user, title, category, start FROM events WHERE id = ? AND user = ?`, id, user)
	return scanEvent(row)
}

// ListEvents returns all events of a user, ordered by title.
func (s *Store) ListEvents(user string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT id, user, title, category, start FROM events WHERE user = ? ORDER BY title`, user)
	if err != nil {
		return nil, fmt.Errorf("storage: list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// EventEntries resolves all of a user's stored events into calendar entries
// for the target year. Stored events recur by month/day: the entry date is
// the stored month and day re-anchored to the requested year. The entries
// carry an INTERNAL source tag with the event's ID.
//
// A Feb 29 event resolved for a common year normalizes to Mar 1 (Go's
// date arithmetic); the occurrence is kept rather than dropped.
func (s *Store) EventEntries(user string, year int) (*model.CalendarEntryList, error) {
	events, err := s.ListEvents(user)
	if err != nil {
		return nil, err
	}

	result := model.NewCalendarEntryList()
	for _, ev := range events {
		occurrence := time.Date(year, ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, time.UTC)
		entry, err := model.NewCalendarEntry(ev.Title, ev.Category, occurrence,
			model.EntrySource{Kind: model.OriginInternal, Ref: ev.ID})
		if err != nil {
			return nil, fmt.Errorf("storage: event %s: %w", ev.ID, err)
		}
		if err := result.Add(entry); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var ev Event
	var category, start string
	if err := row.Scan(&ev.ID, &ev.User, &ev.Title, &category, &start); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("storage: scan event: %w", err)
	}
	ev.Category = model.EventCategory(category)
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return Event{}, fmt.Errorf("storage: event %s has malformed start %q: %w", ev.ID, start, err)
	}
	ev.Start = t
	return ev, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
