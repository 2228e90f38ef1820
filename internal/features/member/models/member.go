package models

import "time"

// Member is one membership record. A user may accumulate several records
// over repeated signups, but at most one of them is active (not logically
// deleted) at a time; that invariant is enforced by the signup flow, not
// by the store.
type Member struct {
	ID          string `json:"id"`
	LineUserID  string `json:"lineUserId"`
	AccountName string `json:"accountName"`
	// Logical delete flag. Omitted while false so records created before
	// the flag existed and fresh records look the same.
	IsDeleted bool      `json:"isDeleted,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Active reports whether the record counts as a current membership.
func (m *Member) Active() bool {
	return !m.IsDeleted
}
