package session

import "context"

// Keys of the generation-flow state bag.
const (
	KeySelectedLayout      = "selected_layout"
	KeyTargetYear          = "target_year"
	KeyLayoutConfiguration = "layout_configuration"
)

// Store keeps a small bag of string-keyed values scoped to one user's
// in-progress generation flow. Implementations expire abandoned flows
// after a TTL.
type Store interface {
	// Set stores a value under (sid, key) and refreshes the flow's TTL.
	Set(ctx context.Context, sid, key, value string) error

	// Get returns the value under (sid, key); ok is false when absent.
	Get(ctx context.Context, sid, key string) (value string, ok bool, err error)

	// Pop returns and removes the value under (sid, key), consuming it.
	Pop(ctx context.Context, sid, key string) (value string, ok bool, err error)
}
