package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "linkup/pkg/domain"
)

// fakeSource counts calls so tests can tell cache hits from fallthroughs.
type fakeSource struct {
	peers     map[id.UserID][]id.UserID
	mutual    int
	connected bool

	peerCalls      int
	mutualCalls    int
	connectedCalls int
}

func (f *fakeSource) AcceptedPeerIDs(_ context.Context, userID id.UserID) ([]id.UserID, error) {
	f.peerCalls++
	return f.peers[userID], nil
}

func (f *fakeSource) MutualCount(_ context.Context, _, _ id.UserID) (int, error) {
	f.mutualCalls++
	return f.mutual, nil
}

func (f *fakeSource) AreConnected(_ context.Context, _, _ id.UserID) (bool, error) {
	f.connectedCalls++
	return f.connected, nil
}

// A nil client must behave as if the cache were not there at all.
func TestNilClientPassesThrough(t *testing.T) {
	ctx := context.Background()
	alice, bob := id.NewUserID(), id.NewUserID()
	source := &fakeSource{
		peers:     map[id.UserID][]id.UserID{alice: {bob}},
		mutual:    3,
		connected: true,
	}
	c := New(source, nil)

	peers, err := c.AcceptedPeerIDs(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []id.UserID{bob}, peers)

	count, err := c.MutualCount(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	connected, err := c.AreConnected(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, connected)

	// Every read must have gone to the source.
	peers, err = c.AcceptedPeerIDs(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []id.UserID{bob}, peers)
	assert.Equal(t, 2, source.peerCalls)
	assert.Equal(t, 1, source.mutualCalls)
	assert.Equal(t, 1, source.connectedCalls)
}

func TestNilClientInvalidateIsNoop(t *testing.T) {
	c := New(&fakeSource{}, nil)
	// Must not panic without a client.
	c.InvalidateUsers(context.Background(), id.NewUserID(), id.NewUserID())
}

func TestPairFieldIsDirectionIndependent(t *testing.T) {
	a, b := id.NewUserID(), id.NewUserID()
	assert.Equal(t, pairField(a, b), pairField(b, a))
	assert.NotEqual(t, pairField(a, b), pairField(a, a))
}
