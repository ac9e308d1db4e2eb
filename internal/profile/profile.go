// Package profile defines the directory port through which linkup learns
// about members: whether they exist and can receive requests, and the
// attributes the suggestion strategies match on. The directory itself is
// owned by another system; this package only adapts it.
package profile

import (
	"context"

	id "linkup/pkg/domain"
)

// Profile is the subset of member attributes linkup consumes.
type Profile struct {
	UserID      id.UserID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Headline    string    `json:"headline"`
	Industry    string    `json:"industry"`
	Location    string    `json:"location"`
	Active      bool      `json:"active"`
}

// Directory looks up members and attribute-based candidate sets.
//
// Get returns sentinel.ErrNotFound for unknown users. FindByIndustry and
// FindByLocation return at most limit active members (no cap when
// limit <= 0) and may include the subject themselves; callers filter.
type Directory interface {
	ExistsAndActive(ctx context.Context, userID id.UserID) (bool, error)
	Get(ctx context.Context, userID id.UserID) (*Profile, error)
	FindByIndustry(ctx context.Context, industry string, limit int) ([]id.UserID, error)
	FindByLocation(ctx context.Context, location string, limit int) ([]id.UserID, error)
}
