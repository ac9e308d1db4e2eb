package models

import (
	"time"

	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
)

// maxMessageLength bounds the optional free-text note on a request.
const maxMessageLength = 500

// State is a connection record's lifecycle state.
//
// PENDING is the only initial state. ACCEPTED, REJECTED and BLOCKED are
// stored terminal states; cancel (from PENDING) and remove (from ACCEPTED)
// delete the record outright instead of storing a terminal state.
type State string

const (
	StatePending  State = "PENDING"
	StateAccepted State = "ACCEPTED"
	StateRejected State = "REJECTED"
	StateBlocked  State = "BLOCKED"
)

// IsValid reports whether s is one of the four stored states.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateAccepted, StateRejected, StateBlocked:
		return true
	}
	return false
}

// ConnectionRecord is the relationship entity between two users.
//
// Invariants:
//   - RequesterID != AddresseeID
//   - At most one record exists per unordered user pair, any state, either
//     direction. Enforced at creation by the store.
//   - Message is set at creation and immutable thereafter.
//   - RequestedAt is set once, at creation.
//   - RespondedAt is set exactly once, when the record leaves PENDING.
type ConnectionRecord struct {
	ID          id.ConnectionID `json:"id"`
	RequesterID id.UserID       `json:"requester_id"`
	AddresseeID id.UserID       `json:"addressee_id"`
	State       State           `json:"state"`
	Message     string          `json:"message,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	RespondedAt *time.Time      `json:"responded_at,omitempty"`
}

// NewConnectionRequest constructs a PENDING record, enforcing the
// construction-time invariants.
func NewConnectionRequest(connectionID id.ConnectionID, requesterID, addresseeID id.UserID, message string, now time.Time) (*ConnectionRecord, error) {
	if requesterID.IsNil() || addresseeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "requester and addressee are required")
	}
	if requesterID == addresseeID {
		return nil, dErrors.New(dErrors.CodeSelfConnection, "cannot send a connection request to yourself")
	}
	if len(message) > maxMessageLength {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "message must be %d characters or less", maxMessageLength)
	}
	return &ConnectionRecord{
		ID:          connectionID,
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		State:       StatePending,
		Message:     message,
		RequestedAt: now,
	}, nil
}

// IsParticipant reports whether the user is requester or addressee.
func (r *ConnectionRecord) IsParticipant(userID id.UserID) bool {
	return r.RequesterID == userID || r.AddresseeID == userID
}

// OtherParty returns the participant that is not userID. The caller must
// have checked IsParticipant first.
func (r *ConnectionRecord) OtherParty(userID id.UserID) id.UserID {
	if r.RequesterID == userID {
		return r.AddresseeID
	}
	return r.RequesterID
}

// respond moves the record out of PENDING. Only state handlers call this;
// they have already validated the transition.
func (r *ConnectionRecord) respond(next State, now time.Time) {
	r.State = next
	r.RespondedAt = &now
}
