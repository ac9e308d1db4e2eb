package service

import (
	"context"

	"linkup/internal/connection/models"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
	"linkup/pkg/requestcontext"
)

// GetByID returns the record when the caller is a participant. Outsiders
// get UNAUTHORIZED_ACCESS even when the record exists.
func (s *Service) GetByID(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.store.FindByID(ctx, connectionID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if !record.IsParticipant(callerID) {
		return nil, dErrors.New(dErrors.CodeUnauthorizedAccess, "caller is not a participant of this connection")
	}
	return record, nil
}

// ListAccepted returns the caller's established connections.
func (s *Service) ListAccepted(ctx context.Context) ([]*models.ConnectionRecord, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListAcceptedByUser(ctx, callerID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return records, nil
}

// ListPendingSent returns pending requests the caller initiated.
func (s *Service) ListPendingSent(ctx context.Context) ([]*models.ConnectionRecord, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListPendingSent(ctx, callerID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return records, nil
}

// ListPendingReceived returns pending requests addressed to the caller.
func (s *Service) ListPendingReceived(ctx context.Context) ([]*models.ConnectionRecord, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListPendingReceived(ctx, callerID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return records, nil
}

// MutualCount counts users connected to both the caller and otherID.
func (s *Service) MutualCount(ctx context.Context, otherID id.UserID) (int, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return 0, err
	}
	if otherID.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	count, err := s.graph.MutualCount(ctx, callerID, otherID)
	if err != nil {
		return 0, translateStoreErr(err)
	}
	return count, nil
}

// IsConnected reports whether an accepted connection links the caller and
// otherID. Pending and terminal records do not count.
func (s *Service) IsConnected(ctx context.Context, otherID id.UserID) (bool, error) {
	callerID, err := s.caller(ctx)
	if err != nil {
		return false, err
	}
	if otherID.IsNil() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	connected, err := s.graph.AreConnected(ctx, callerID, otherID)
	if err != nil {
		return false, translateStoreErr(err)
	}
	return connected, nil
}

func (s *Service) caller(ctx context.Context) (id.UserID, error) {
	callerID := requestcontext.CallerID(ctx)
	if callerID.IsNil() {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	return callerID, nil
}
