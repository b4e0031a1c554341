package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calingen/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEventCRUD(t *testing.T) {
	store := openTestStore(t)

	created, err := store.CreateEvent(Event{
		User:  "alice",
		Title: "Birthday",
		Start: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	// Category defaults when unset.
	assert.Equal(t, model.CategoryAnnualAnniversary, created.Category)

	got, err := store.GetEvent("alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Birthday", got.Title)
	assert.True(t, created.Start.Equal(got.Start))

	created.Title = "Alice's Birthday"
	require.NoError(t, store.UpdateEvent(created))
	got, err = store.GetEvent("alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice's Birthday", got.Title)

	require.NoError(t, store.DeleteEvent("alice", created.ID))
	_, err = store.GetEvent("alice", created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEventOperationsAreUserScoped(t *testing.T) {
	store := openTestStore(t)

	created, err := store.CreateEvent(Event{
		User:  "alice",
		Title: "Birthday",
		Start: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = store.GetEvent("bob", created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.DeleteEvent("bob", created.ID), ErrNotFound)

	created.User = "bob"
	require.ErrorIs(t, store.UpdateEvent(created), ErrNotFound)

	events, err := store.ListEvents("bob")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateEventValidation(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CreateEvent(Event{Title: "No User"})
	require.Error(t, err)

	_, err = store.CreateEvent(Event{User: "alice"})
	require.Error(t, err)
}

func TestListEventsOrdersByTitle(t *testing.T) {
	store := openTestStore(t)
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, title := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := store.CreateEvent(Event{User: "alice", Title: title, Start: start})
		require.NoError(t, err)
	}

	events, err := store.ListEvents("alice")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Alpha", events[0].Title)
	assert.Equal(t, "Mid", events[1].Title)
	assert.Equal(t, "Zeta", events[2].Title)
}

func TestEventEntriesReanchorsToTargetYear(t *testing.T) {
	store := openTestStore(t)

	created, err := store.CreateEvent(Event{
		User:     "alice",
		Title:    "Birthday",
		Category: model.CategoryAnnualAnniversary,
		Start:    time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	list, err := store.EventEntries("alice", 2024)
	require.NoError(t, err)
	require.Equal(t, 1, list.Len())

	entry := list.Sorted()[0]
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), entry.Timestamp())
	assert.Equal(t, model.OriginInternal, entry.Source().Kind)
	assert.Equal(t, created.ID, entry.Source().Ref)
}

func TestEventEntriesLeapDayNormalizesInCommonYear(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CreateEvent(Event{
		User:  "alice",
		Title: "Leap Day",
		Start: time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	list, err := store.EventEntries("alice", 2024)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), list.Sorted()[0].Timestamp())

	list, err = store.EventEntries("alice", 2025)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), list.Sorted()[0].Timestamp())
}
