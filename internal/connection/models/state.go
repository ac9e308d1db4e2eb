package models

import (
	"time"

	dErrors "linkup/pkg/domain-errors"
)

// StateHandler owns the legal-transition rules for one lifecycle state.
//
// An operation is legal only if its predicate is true for the record's
// current state; otherwise the mutating method fails with
// INVALID_STATE_TRANSITION and leaves the record untouched. Cancel and
// remove are deletions, so the handlers only gate them (CanCancel,
// CanRemove) and the orchestrator performs the delete.
//
// Transition table:
//
//	PENDING  → ACCEPTED | REJECTED | BLOCKED | deleted (cancel)
//	ACCEPTED → deleted (remove)
//	REJECTED, BLOCKED → no transitions
//
// No handler re-enters PENDING. A BLOCKED record additionally signals that
// future requests from the blocked party should be rejected up front;
// enforcing that policy is the caller's concern, not the state machine's.
type StateHandler interface {
	State() State

	CanAccept() bool
	CanReject() bool
	CanBlock() bool
	CanCancel() bool
	CanRemove() bool

	Accept(record *ConnectionRecord, now time.Time) error
	Reject(record *ConnectionRecord, now time.Time) error
	Block(record *ConnectionRecord, now time.Time) error
}

// HandlerFor returns the handler owning the record's current state.
func HandlerFor(state State) (StateHandler, error) {
	switch state {
	case StatePending:
		return pendingHandler{}, nil
	case StateAccepted:
		return acceptedHandler{}, nil
	case StateRejected:
		return rejectedHandler{}, nil
	case StateBlocked:
		return blockedHandler{}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInternal, "unknown connection state %q", state)
	}
}

func invalidTransition(from State, op string) error {
	return dErrors.Newf(dErrors.CodeInvalidStateTransition, "cannot %s a connection in state %s", op, from)
}

// pendingHandler is the only handler that admits responses: the addressee
// may accept, reject or block, and the requester may cancel.
type pendingHandler struct{}

func (pendingHandler) State() State    { return StatePending }
func (pendingHandler) CanAccept() bool { return true }
func (pendingHandler) CanReject() bool { return true }
func (pendingHandler) CanBlock() bool  { return true }
func (pendingHandler) CanCancel() bool { return true }
func (pendingHandler) CanRemove() bool { return false }

func (pendingHandler) Accept(record *ConnectionRecord, now time.Time) error {
	record.respond(StateAccepted, now)
	return nil
}

func (pendingHandler) Reject(record *ConnectionRecord, now time.Time) error {
	record.respond(StateRejected, now)
	return nil
}

func (pendingHandler) Block(record *ConnectionRecord, now time.Time) error {
	record.respond(StateBlocked, now)
	return nil
}

// acceptedHandler admits only removal. Blocking an established connection
// is deliberately not supported: a block answers a request, and severing an
// accepted connection is what remove is for.
type acceptedHandler struct{}

func (acceptedHandler) State() State    { return StateAccepted }
func (acceptedHandler) CanAccept() bool { return false }
func (acceptedHandler) CanReject() bool { return false }
func (acceptedHandler) CanBlock() bool  { return false }
func (acceptedHandler) CanCancel() bool { return false }
func (acceptedHandler) CanRemove() bool { return true }

func (acceptedHandler) Accept(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "accept")
}

func (acceptedHandler) Reject(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "reject")
}

func (acceptedHandler) Block(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "block")
}

// rejectedHandler is terminal.
type rejectedHandler struct{}

func (rejectedHandler) State() State    { return StateRejected }
func (rejectedHandler) CanAccept() bool { return false }
func (rejectedHandler) CanReject() bool { return false }
func (rejectedHandler) CanBlock() bool  { return false }
func (rejectedHandler) CanCancel() bool { return false }
func (rejectedHandler) CanRemove() bool { return false }

func (rejectedHandler) Accept(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "accept")
}

func (rejectedHandler) Reject(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "reject")
}

func (rejectedHandler) Block(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "block")
}

// blockedHandler is terminal.
type blockedHandler struct{}

func (blockedHandler) State() State    { return StateBlocked }
func (blockedHandler) CanAccept() bool { return false }
func (blockedHandler) CanReject() bool { return false }
func (blockedHandler) CanBlock() bool  { return false }
func (blockedHandler) CanCancel() bool { return false }
func (blockedHandler) CanRemove() bool { return false }

func (blockedHandler) Accept(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "accept")
}

func (blockedHandler) Reject(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "reject")
}

func (blockedHandler) Block(record *ConnectionRecord, _ time.Time) error {
	return invalidTransition(record.State, "block")
}
