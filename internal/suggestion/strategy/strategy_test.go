package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup/internal/connection/models"
	"linkup/internal/connection/store"
	"linkup/internal/profile"
	id "linkup/pkg/domain"
)

// graphFixture wires an in-memory connection store with helpers to seed
// accepted and pending edges.
type graphFixture struct {
	t     *testing.T
	store *store.InMemory
}

func newGraphFixture(t *testing.T) *graphFixture {
	t.Helper()
	return &graphFixture{t: t, store: store.NewInMemory()}
}

func (g *graphFixture) pending(a, b id.UserID) {
	g.t.Helper()
	record, err := models.NewConnectionRequest(id.NewConnectionID(), a, b, "", time.Now())
	require.NoError(g.t, err)
	require.NoError(g.t, g.store.Create(context.Background(), record))
}

func (g *graphFixture) accepted(a, b id.UserID) {
	g.t.Helper()
	record, err := models.NewConnectionRequest(id.NewConnectionID(), a, b, "", time.Now())
	require.NoError(g.t, err)
	require.NoError(g.t, g.store.Create(context.Background(), record))
	_, err = g.store.Execute(context.Background(), record.ID,
		func(*models.ConnectionRecord) error { return nil },
		func(r *models.ConnectionRecord) {
			h, err := models.HandlerFor(r.State)
			require.NoError(g.t, err)
			require.NoError(g.t, h.Accept(r, time.Now()))
		},
	)
	require.NoError(g.t, err)
}

func TestMutualConnections(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol, dave, eve := id.NewUserID(), id.NewUserID(), id.NewUserID(), id.NewUserID(), id.NewUserID()

	g := newGraphFixture(t)
	// alice-bob and alice-carol accepted; dave is connected to both, eve only
	// to bob. alice to frank pending is covered in the exclusion subtest.
	g.accepted(alice, bob)
	g.accepted(alice, carol)
	g.accepted(bob, dave)
	g.accepted(carol, dave)
	g.accepted(bob, eve)

	s := NewMutualConnections(g.store, 1.0)

	t.Run("scores by shared count normalized to the batch max", func(t *testing.T) {
		candidates, err := s.Generate(ctx, alice, 10)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, dave, candidates[0].UserID)
		assert.Equal(t, 1.0, candidates[0].Score, "2 shared out of batch max 2")
		assert.Equal(t, "You have 2 mutual connections", candidates[0].Reason)

		assert.Equal(t, eve, candidates[1].UserID)
		assert.Equal(t, 0.5, candidates[1].Score, "1 shared out of batch max 2")
		assert.Equal(t, "You have 1 mutual connection", candidates[1].Reason)
	})

	t.Run("excludes existing and pending counterparties", func(t *testing.T) {
		frank := id.NewUserID()
		g.accepted(bob, frank)
		g.pending(alice, frank)

		candidates, err := s.Generate(ctx, alice, 10)
		require.NoError(t, err)
		for _, c := range candidates {
			assert.NotEqual(t, frank, c.UserID, "pending counterparty must not be suggested")
			assert.NotEqual(t, alice, c.UserID)
			assert.NotEqual(t, bob, c.UserID, "existing connection must not be suggested")
		}
	})

	t.Run("not applicable without accepted connections", func(t *testing.T) {
		loner := id.NewUserID()
		applicable, err := s.Applicable(ctx, loner)
		require.NoError(t, err)
		assert.False(t, applicable)

		applicable, err = s.Applicable(ctx, alice)
		require.NoError(t, err)
		assert.True(t, applicable)
	})

	t.Run("honors the limit", func(t *testing.T) {
		candidates, err := s.Generate(ctx, alice, 1)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, dave, candidates[0].UserID, "best candidate survives the cut")
	})
}

func TestAttributeStrategies(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol := id.NewUserID(), id.NewUserID(), id.NewUserID()

	dir := profile.NewInMemoryDirectory()
	dir.Put(profile.Profile{UserID: alice, Industry: "Software", Location: "Berlin", Active: true})
	dir.Put(profile.Profile{UserID: bob, Industry: "Software", Location: "Berlin", Active: true})
	dir.Put(profile.Profile{UserID: carol, Industry: "Finance", Location: "Berlin", Active: true})

	g := newGraphFixture(t)

	t.Run("same industry matches and explains", func(t *testing.T) {
		s := NewSameIndustry(g.store, dir, 0.6)

		applicable, err := s.Applicable(ctx, alice)
		require.NoError(t, err)
		assert.True(t, applicable)

		candidates, err := s.Generate(ctx, alice, 10)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, bob, candidates[0].UserID)
		assert.Equal(t, 1.0, candidates[0].Score)
		assert.Equal(t, "You both work in Software", candidates[0].Reason)
	})

	t.Run("same location matches several", func(t *testing.T) {
		s := NewSameLocation(g.store, dir, 0.5)
		candidates, err := s.Generate(ctx, alice, 10)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		for _, c := range candidates {
			assert.Equal(t, "You are both in Berlin", c.Reason)
			assert.NotEqual(t, alice, c.UserID)
		}
	})

	t.Run("excludes existing connections", func(t *testing.T) {
		g2 := newGraphFixture(t)
		g2.accepted(alice, bob)
		s := NewSameIndustry(g2.store, dir, 0.6)

		candidates, err := s.Generate(ctx, alice, 10)
		require.NoError(t, err)
		assert.Empty(t, candidates, "bob is already connected")
	})

	t.Run("not applicable without the attribute", func(t *testing.T) {
		bare := id.NewUserID()
		dir.Put(profile.Profile{UserID: bare, Location: "Berlin", Active: true})

		s := NewSameIndustry(g.store, dir, 0.6)
		applicable, err := s.Applicable(ctx, bare)
		require.NoError(t, err)
		assert.False(t, applicable)
	})

	t.Run("not applicable without a profile", func(t *testing.T) {
		s := NewSameIndustry(g.store, dir, 0.6)
		applicable, err := s.Applicable(ctx, id.NewUserID())
		require.NoError(t, err)
		assert.False(t, applicable)
	})
}
