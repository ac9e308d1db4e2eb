// Package domain holds the typed identifiers shared across linkup.
//
// IDs are distinct types over uuid.UUID so the compiler rejects passing a
// ConnectionID where a UserID is expected. Parse helpers enforce the
// invariant that IDs are valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "linkup/pkg/domain-errors"
)

// UserID identifies a member of the social graph.
type UserID uuid.UUID

// ConnectionID identifies a connection record between two users.
type ConnectionID uuid.UUID

// NewUserID returns a fresh random UserID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// NewConnectionID returns a fresh random ConnectionID.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New())
}

// ParseUserID validates s and returns the typed ID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseConnectionID validates s and returns the typed ID.
func ParseConnectionID(s string) (ConnectionID, error) {
	u, err := parseUUID(s, "connection id")
	return ConnectionID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return u, nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the canonical UUID form for JSON and text encoders.
func (id UserID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses and validates the canonical UUID form.
func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ConnectionID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id ConnectionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the canonical UUID form for JSON and text encoders.
func (id ConnectionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses and validates the canonical UUID form.
func (id *ConnectionID) UnmarshalText(b []byte) error {
	parsed, err := ParseConnectionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
