package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"linkup/internal/connection/models"
	"linkup/internal/connection/store"
	"linkup/internal/profile/mocks"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
	"linkup/pkg/platform/events"
	eventsmemory "linkup/pkg/platform/events/store/memory"
	"linkup/pkg/platform/events/publisher"
	"linkup/pkg/requestcontext"
)

type fakeInvalidator struct {
	calls [][]id.UserID
}

func (f *fakeInvalidator) InvalidateUsers(_ context.Context, users ...id.UserID) {
	f.calls = append(f.calls, users)
}

type ConnectionServiceSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	directory   *mocks.MockDirectory
	store       *store.InMemory
	eventStore  *eventsmemory.InMemoryStore
	invalidator *fakeInvalidator
	service     *Service

	now time.Time
}

func TestConnectionServiceSuite(t *testing.T) {
	suite.Run(t, new(ConnectionServiceSuite))
}

func (s *ConnectionServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.store = store.NewInMemory()
	s.eventStore = eventsmemory.NewInMemoryStore()
	s.invalidator = &fakeInvalidator{}
	s.now = time.Date(2026, 5, 12, 14, 0, 0, 0, time.UTC)
	s.service = New(s.store, s.directory,
		WithPublisher(publisher.NewPublisher(s.eventStore)),
		WithCacheInvalidator(s.invalidator),
	)
}

func (s *ConnectionServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ConnectionServiceSuite) as(callerID id.UserID) context.Context {
	ctx := requestcontext.WithCallerID(context.Background(), callerID)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ConnectionServiceSuite) allowAddressee(userID id.UserID) {
	s.directory.EXPECT().ExistsAndActive(gomock.Any(), userID).Return(true, nil).AnyTimes()
}

func (s *ConnectionServiceSuite) sendRequest(requester, addressee id.UserID) *models.ConnectionRecord {
	s.allowAddressee(addressee)
	record, err := s.service.SendRequest(s.as(requester), addressee, "hi")
	s.Require().NoError(err)
	return record
}

func (s *ConnectionServiceSuite) eventTypes() []events.Type {
	recorded, err := s.eventStore.List(context.Background())
	s.Require().NoError(err)
	types := make([]events.Type, len(recorded))
	for i, event := range recorded {
		types[i] = event.Type
	}
	return types
}

// TestSendRequest covers creation guards in their failure order.
func (s *ConnectionServiceSuite) TestSendRequest() {
	s.Run("creates a pending record and emits requested", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		s.Equal(models.StatePending, record.State)
		s.Equal(alice, record.RequesterID)
		s.Equal(bob, record.AddresseeID)
		s.Equal(s.now, record.RequestedAt)
		s.Nil(record.RespondedAt)
		s.Equal([]events.Type{events.TypeRequested}, s.eventTypes())
	})

	s.Run("rejects self connection", func() {
		alice := id.NewUserID()
		_, err := s.service.SendRequest(s.as(alice), alice, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSelfConnection))
	})

	s.Run("rejects duplicate in both directions and any state", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		_, err := s.service.SendRequest(s.as(alice), bob, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateRequest))

		s.allowAddressee(alice)
		_, err = s.service.SendRequest(s.as(bob), alice, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateRequest), "reverse direction")

		_, err = s.service.Accept(s.as(bob), record.ID)
		s.Require().NoError(err)
		_, err = s.service.SendRequest(s.as(alice), bob, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateRequest), "accepted record still blocks")
	})

	s.Run("rejects unavailable addressee", func() {
		alice, ghost := id.NewUserID(), id.NewUserID()
		s.directory.EXPECT().ExistsAndActive(gomock.Any(), ghost).Return(false, nil)

		_, err := s.service.SendRequest(s.as(alice), ghost, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAddresseeUnavailable))
	})

	s.Run("requires caller identity", func() {
		_, err := s.service.SendRequest(context.Background(), id.NewUserID(), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// TestRespond covers accept/reject/block authorization and legality.
func (s *ConnectionServiceSuite) TestRespond() {
	s.Run("addressee accepts and respondedAt is stamped", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		accepted, err := s.service.Accept(s.as(bob), record.ID)
		s.Require().NoError(err)
		s.Equal(models.StateAccepted, accepted.State)
		s.Require().NotNil(accepted.RespondedAt)
		s.Equal(s.now, *accepted.RespondedAt)
		s.Equal([]events.Type{events.TypeRequested, events.TypeAccepted}, s.eventTypes())
	})

	s.Run("requester may not accept their own request", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		_, err := s.service.Accept(s.as(alice), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAction))
	})

	s.Run("authorization outranks state legality", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)
		_, err := s.service.Accept(s.as(bob), record.ID)
		s.Require().NoError(err)

		// The record is no longer PENDING, but the requester must still
		// see an authorization failure, not a state failure.
		_, err = s.service.Accept(s.as(alice), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAction))
	})

	s.Run("accepting twice fails with invalid transition", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)
		_, err := s.service.Accept(s.as(bob), record.ID)
		s.Require().NoError(err)

		_, err = s.service.Accept(s.as(bob), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})

	s.Run("reject and block are terminal", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		rejected, err := s.service.Reject(s.as(bob), record.ID)
		s.Require().NoError(err)
		s.Equal(models.StateRejected, rejected.State)

		_, err = s.service.Block(s.as(bob), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})

	s.Run("blocked pair cannot receive a fresh request", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		blocked, err := s.service.Block(s.as(bob), record.ID)
		s.Require().NoError(err)
		s.Equal(models.StateBlocked, blocked.State)

		_, err = s.service.SendRequest(s.as(alice), bob, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateRequest))
	})

	s.Run("unknown record yields NOT_FOUND", func() {
		_, err := s.service.Accept(s.as(id.NewUserID()), id.NewConnectionID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestCancel covers requester-only withdrawal.
func (s *ConnectionServiceSuite) TestCancel() {
	s.Run("requester cancels and the pair slot frees", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		s.Require().NoError(s.service.Cancel(s.as(alice), record.ID))

		_, err := s.service.GetByID(s.as(alice), record.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		// A fresh request between the same pair is possible again.
		_, err = s.service.SendRequest(s.as(alice), bob, "second try")
		s.Require().NoError(err)
		s.Equal([]events.Type{events.TypeRequested, events.TypeCancelled, events.TypeRequested}, s.eventTypes())
	})

	s.Run("addressee may not cancel", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		err := s.service.Cancel(s.as(bob), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAction))
	})

	s.Run("accepted record cannot be cancelled", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)
		_, err := s.service.Accept(s.as(bob), record.ID)
		s.Require().NoError(err)

		err = s.service.Cancel(s.as(alice), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})
}

// TestRemove covers severing accepted connections.
func (s *ConnectionServiceSuite) TestRemove() {
	s.Run("either participant removes an accepted connection", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)
		_, err := s.service.Accept(s.as(bob), record.ID)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Remove(s.as(alice), record.ID))

		connected, err := s.service.IsConnected(s.as(alice), bob)
		s.Require().NoError(err)
		s.False(connected)
		s.Equal([]events.Type{events.TypeRequested, events.TypeAccepted, events.TypeRemoved}, s.eventTypes())
	})

	s.Run("pending record cannot be removed", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		err := s.service.Remove(s.as(alice), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})

	s.Run("outsider may not remove", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)
		_, err := s.service.Accept(s.as(bob), record.ID)
		s.Require().NoError(err)

		err = s.service.Remove(s.as(id.NewUserID()), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAction))
	})
}

// TestReadAccess covers participant-only reads and the graph queries.
func (s *ConnectionServiceSuite) TestReadAccess() {
	s.Run("participants read, outsiders get UNAUTHORIZED_ACCESS", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		record := s.sendRequest(alice, bob)

		found, err := s.service.GetByID(s.as(bob), record.ID)
		s.Require().NoError(err)
		s.Equal(record.ID, found.ID)

		_, err = s.service.GetByID(s.as(id.NewUserID()), record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAccess))
	})

	s.Run("pending lists split by direction", func() {
		alice, bob := id.NewUserID(), id.NewUserID()
		s.sendRequest(alice, bob)

		sent, err := s.service.ListPendingSent(s.as(alice))
		s.Require().NoError(err)
		s.Len(sent, 1)

		received, err := s.service.ListPendingReceived(s.as(bob))
		s.Require().NoError(err)
		s.Len(received, 1)

		accepted, err := s.service.ListAccepted(s.as(alice))
		s.Require().NoError(err)
		s.Empty(accepted)
	})

	s.Run("mutual count ignores pending records", func() {
		alice, bob, carol, dave := id.NewUserID(), id.NewUserID(), id.NewUserID(), id.NewUserID()

		accept := func(requester, addressee id.UserID) {
			record := s.sendRequest(requester, addressee)
			_, err := s.service.Accept(s.as(addressee), record.ID)
			s.Require().NoError(err)
		}
		accept(alice, carol)
		accept(bob, carol)
		s.sendRequest(alice, dave)
		s.sendRequest(bob, dave)

		count, err := s.service.MutualCount(s.as(alice), bob)
		s.Require().NoError(err)
		s.Equal(1, count, "carol is shared; dave is only pending")
	})
}

// TestCacheInvalidation verifies both participants are invalidated on every
// mutation.
func (s *ConnectionServiceSuite) TestCacheInvalidation() {
	alice, bob := id.NewUserID(), id.NewUserID()
	record := s.sendRequest(alice, bob)
	_, err := s.service.Accept(s.as(bob), record.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Remove(s.as(alice), record.ID))

	s.Require().Len(s.invalidator.calls, 3, "send, accept, remove")
	for _, call := range s.invalidator.calls {
		s.ElementsMatch([]id.UserID{alice, bob}, call)
	}
}

// TestConnectThenRemoveFlow walks one relationship from first contact to
// severance.
func (s *ConnectionServiceSuite) TestConnectThenRemoveFlow() {
	alice, bob := id.NewUserID(), id.NewUserID()
	s.allowAddressee(bob)

	record, err := s.service.SendRequest(s.as(alice), bob, "Let's connect")
	s.Require().NoError(err)
	s.Equal("Let's connect", record.Message)

	accepted, err := s.service.Accept(s.as(bob), record.ID)
	s.Require().NoError(err)
	s.Equal(models.StateAccepted, accepted.State)
	s.Require().NotNil(accepted.RespondedAt)

	connected, err := s.service.IsConnected(s.as(alice), bob)
	s.Require().NoError(err)
	s.True(connected)

	list, err := s.service.ListAccepted(s.as(alice))
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(bob, list[0].AddresseeID)

	s.Require().NoError(s.service.Remove(s.as(alice), record.ID))

	connected, err = s.service.IsConnected(s.as(alice), bob)
	s.Require().NoError(err)
	s.False(connected)
	_, err = s.service.GetByID(s.as(alice), record.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
