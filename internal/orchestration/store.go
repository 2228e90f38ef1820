package orchestration

import "context"

// Store persists workflow instances keyed by user id. The latest instance
// for a user replaces any earlier one.
type Store interface {
	// SaveInstance persists a new or replaced instance for its user.
	SaveInstance(ctx context.Context, inst *Instance) error

	// GetInstance retrieves the instance for a user. Returns
	// ErrCodeInstanceNotFound when the user has none.
	GetInstance(ctx context.Context, userID string) (*Instance, error)

	// UpdateInstance persists changes to an existing instance.
	UpdateInstance(ctx context.Context, inst *Instance) error
}
