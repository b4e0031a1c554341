package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"calingen/internal/plugin"
)

// ProviderSelection is the persisted per-user event provider selection.
type ProviderSelection struct {
	Active      []string `json:"active"`
	Unavailable []string `json:"unavailable"`
}

// ProviderState is the reconciled read projection of a ProviderSelection.
// NewlyUnavailable surfaces identifiers that moved from active to
// unavailable during this read, for a one-time user notification.
type ProviderState struct {
	Active           []string `json:"active"`
	Unavailable      []string `json:"unavailable"`
	NewlyUnavailable []string `json:"newly_unavailable"`
}

// ReconcileProviders validates a stored selection against the live provider
// listing. Identifiers no longer registered move from active to unavailable
// (and are additionally reported as newly unavailable); identifiers that
// became available again move from unavailable back to active.
//
// The persisted record is not rewritten here: unavailable selections
// survive administrator plugin toggling until the user re-saves.
func ReconcileProviders(sel ProviderSelection, available []plugin.Info) ProviderState {
	live := make(map[string]bool, len(available))
	for _, info := range available {
		live[info.ID] = true
	}

	state := ProviderState{
		Active:           []string{},
		Unavailable:      []string{},
		NewlyUnavailable: []string{},
	}
	for _, id := range sel.Active {
		if live[id] {
			state.Active = append(state.Active, id)
		} else {
			state.NewlyUnavailable = append(state.NewlyUnavailable, id)
			state.Unavailable = append(state.Unavailable, id)
		}
	}
	for _, id := range sel.Unavailable {
		if live[id] {
			state.Active = append(state.Active, id)
		} else {
			state.Unavailable = append(state.Unavailable, id)
		}
	}
	return state
}

// GetProviderSelection returns the stored selection of a user. A user
// without a profile row yields an empty selection.
func (s *Store) GetProviderSelection(user string) (ProviderSelection, error) {
	var raw string
	err := s.db.QueryRow(`SELECT event_providers FROM profiles WHERE user = ?`, user).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ProviderSelection{}, nil
	}
	if err != nil {
		return ProviderSelection{}, fmt.Errorf("storage: get profile: %w", err)
	}

	var sel ProviderSelection
	if raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &sel); err != nil {
			return ProviderSelection{}, fmt.Errorf("storage: profile of %s is malformed: %w", user, err)
		}
	}
	return sel, nil
}

// SaveProviderSelection persists a user's selection, creating the profile
// row if necessary.
func (s *Store) SaveProviderSelection(user string, sel ProviderSelection) error {
	if user == "" {
		return errors.New("storage: profile needs a user")
	}
	raw, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO profiles (user, event_providers) VALUES (?, ?)
		 ON CONFLICT(user) DO UPDATE SET event_providers = excluded.event_providers`,
		user, string(raw),
	)
	if err != nil {
		return fmt.Errorf("storage: save profile: %w", err)
	}
	return nil
}

// ProviderState reads and reconciles a user's provider selection against
// the package-level event provider registry. The reconciliation happens on
// every read; the stored record is untouched.
func (s *Store) ProviderState(user string) (ProviderState, error) {
	sel, err := s.GetProviderSelection(user)
	if err != nil {
		return ProviderState{}, err
	}
	return ReconcileProviders(sel, plugin.Events.ListAvailable()), nil
}
