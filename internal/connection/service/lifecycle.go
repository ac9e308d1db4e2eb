package service

import (
	"context"
	"errors"
	"time"

	"linkup/internal/connection/models"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
	"linkup/pkg/platform/events"
	"linkup/pkg/platform/sentinel"
	"linkup/pkg/requestcontext"
)

// SendRequest creates a PENDING connection from the caller to addresseeID.
//
// Failure order: self/input validation, duplicate pair, addressee
// availability. The pair constraint inside Create catches duplicate races
// the up-front check misses.
func (s *Service) SendRequest(ctx context.Context, addresseeID id.UserID, message string) (*models.ConnectionRecord, error) {
	start := time.Now()
	callerID := requestcontext.CallerID(ctx)
	if callerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	record, err := models.NewConnectionRequest(
		id.NewConnectionID(), callerID, addresseeID, message, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if _, err := s.store.FindByPair(ctx, callerID, addresseeID); err == nil {
		return nil, dErrors.New(dErrors.CodeDuplicateRequest, "a connection already exists between these users")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing connection")
	}

	available, err := s.directory.ExistsAndActive(ctx, addresseeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check addressee availability")
	}
	if !available {
		return nil, dErrors.New(dErrors.CodeAddresseeUnavailable, "addressee does not exist or cannot receive requests")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, record); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeDuplicateRequest, "a connection already exists between these users")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create connection")
		}
		return s.emit(txCtx, events.TypeRequested, record)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, record)
	if s.metrics != nil {
		s.metrics.IncrementRequestSent()
		s.metrics.ObserveSendRequest(start)
	}
	s.logger.InfoContext(ctx, "connection requested",
		"connection_id", record.ID.String(),
		"requester_id", record.RequesterID.String(),
		"addressee_id", record.AddresseeID.String(),
	)
	return record, nil
}

// Accept transitions a PENDING request to ACCEPTED. Addressee only.
func (s *Service) Accept(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error) {
	return s.respond(ctx, connectionID, "accept", events.TypeAccepted, "accepted",
		func(h models.StateHandler) bool { return h.CanAccept() },
		func(h models.StateHandler, record *models.ConnectionRecord, now time.Time) error {
			return h.Accept(record, now)
		},
	)
}

// Reject transitions a PENDING request to REJECTED. Addressee only.
func (s *Service) Reject(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error) {
	return s.respond(ctx, connectionID, "reject", events.TypeRejected, "rejected",
		func(h models.StateHandler) bool { return h.CanReject() },
		func(h models.StateHandler, record *models.ConnectionRecord, now time.Time) error {
			return h.Reject(record, now)
		},
	)
}

// Block transitions a PENDING request to BLOCKED. Addressee only. Future
// requests between the pair fail the duplicate check since the record stays.
func (s *Service) Block(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error) {
	return s.respond(ctx, connectionID, "block", events.TypeBlocked, "blocked",
		func(h models.StateHandler) bool { return h.CanBlock() },
		func(h models.StateHandler, record *models.ConnectionRecord, now time.Time) error {
			return h.Block(record, now)
		},
	)
}

// respond runs the shared accept/reject/block path. Authorization (caller
// must be the addressee) is checked before transition legality so an
// unauthorized caller learns nothing about the record's state.
func (s *Service) respond(
	ctx context.Context,
	connectionID id.ConnectionID,
	op string,
	eventType events.Type,
	outcome string,
	can func(models.StateHandler) bool,
	apply func(models.StateHandler, *models.ConnectionRecord, time.Time) error,
) (*models.ConnectionRecord, error) {
	start := time.Now()
	callerID := requestcontext.CallerID(ctx)
	if callerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	now := requestcontext.Now(ctx)

	var record *models.ConnectionRecord
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		updated, err := s.store.Execute(txCtx, connectionID,
			func(r *models.ConnectionRecord) error {
				if r.AddresseeID != callerID {
					return dErrors.Newf(dErrors.CodeUnauthorizedAction, "only the addressee may %s a request", op)
				}
				h, err := models.HandlerFor(r.State)
				if err != nil {
					return err
				}
				if !can(h) {
					return dErrors.Newf(dErrors.CodeInvalidStateTransition, "cannot %s a connection in state %s", op, r.State)
				}
				return nil
			},
			func(r *models.ConnectionRecord) {
				h, _ := models.HandlerFor(r.State)
				_ = apply(h, r, now)
			},
		)
		if err != nil {
			return translateStoreErr(err)
		}
		record = updated
		return s.emit(txCtx, eventType, record)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, record)
	s.countTransition(outcome)
	if s.metrics != nil {
		s.metrics.ObserveTransition(start)
	}
	s.logger.InfoContext(ctx, "connection "+outcome,
		"connection_id", record.ID.String(),
		"caller_id", callerID.String(),
	)
	return record, nil
}

// Cancel withdraws a PENDING request and deletes the record. Requester only.
func (s *Service) Cancel(ctx context.Context, connectionID id.ConnectionID) error {
	return s.deleteTransition(ctx, connectionID, "cancel", events.TypeCancelled, "cancelled",
		func(r *models.ConnectionRecord, callerID id.UserID) error {
			if r.RequesterID != callerID {
				return dErrors.New(dErrors.CodeUnauthorizedAction, "only the requester may cancel a request")
			}
			h, err := models.HandlerFor(r.State)
			if err != nil {
				return err
			}
			if !h.CanCancel() {
				return dErrors.Newf(dErrors.CodeInvalidStateTransition, "cannot cancel a connection in state %s", r.State)
			}
			return nil
		},
	)
}

// Remove severs an ACCEPTED connection and deletes the record. Either
// participant may remove; a fresh request between the pair becomes possible
// again afterwards.
func (s *Service) Remove(ctx context.Context, connectionID id.ConnectionID) error {
	return s.deleteTransition(ctx, connectionID, "remove", events.TypeRemoved, "removed",
		func(r *models.ConnectionRecord, callerID id.UserID) error {
			if !r.IsParticipant(callerID) {
				return dErrors.New(dErrors.CodeUnauthorizedAction, "only a participant may remove a connection")
			}
			h, err := models.HandlerFor(r.State)
			if err != nil {
				return err
			}
			if !h.CanRemove() {
				return dErrors.Newf(dErrors.CodeInvalidStateTransition, "cannot remove a connection in state %s", r.State)
			}
			return nil
		},
	)
}

// deleteTransition validates under the row lock, then deletes inside the
// same transaction so a racing transition cannot slip between the two.
func (s *Service) deleteTransition(
	ctx context.Context,
	connectionID id.ConnectionID,
	op string,
	eventType events.Type,
	outcome string,
	authorize func(record *models.ConnectionRecord, callerID id.UserID) error,
) error {
	start := time.Now()
	callerID := requestcontext.CallerID(ctx)
	if callerID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	var record *models.ConnectionRecord
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.store.Execute(txCtx, connectionID,
			func(r *models.ConnectionRecord) error { return authorize(r, callerID) },
			func(*models.ConnectionRecord) {},
		)
		if err != nil {
			return translateStoreErr(err)
		}
		if err := s.store.Delete(txCtx, connectionID); err != nil {
			return translateStoreErr(err)
		}
		record = locked
		return s.emit(txCtx, eventType, record)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, record)
	s.countTransition(outcome)
	if s.metrics != nil {
		s.metrics.ObserveTransition(start)
	}
	s.logger.InfoContext(ctx, "connection "+outcome,
		"connection_id", connectionID.String(),
		"caller_id", callerID.String(),
		"operation", op,
	)
	return nil
}

func translateStoreErr(err error) error {
	var de *dErrors.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "connection not found")
	case errors.As(err, &de):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "connection store failure")
	}
}
