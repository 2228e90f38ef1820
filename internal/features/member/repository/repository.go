package repository

import (
	"context"

	"line-membership-bot/internal/features/member/models"
)

// MemberRepository is the gateway to the membership record store.
// Reads always hit the store directly; nothing is cached.
type MemberRepository interface {
	// Create assigns an id and persists a new record.
	Create(ctx context.Context, member *models.Member) error

	// FindActiveByUser returns the non-deleted records for a user.
	FindActiveByUser(ctx context.Context, lineUserID string) ([]*models.Member, error)

	// FindAllByUser returns every record for a user, deleted or not.
	FindAllByUser(ctx context.Context, lineUserID string) ([]*models.Member, error)

	// SoftDelete marks the record deleted and persists it. Returns the
	// updated record. Fails with ErrCodeNotFound if the record vanished
	// between read and write; the caller does not retry.
	SoftDelete(ctx context.Context, member *models.Member) (*models.Member, error)
}
