package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup/internal/suggestion/strategy"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
)

// stubStrategy is a scripted strategy for engine tests.
type stubStrategy struct {
	name       string
	weight     float64
	applicable bool

	candidates []strategy.Candidate
	err        error
	applyErr   error

	gotLimit int
	block    bool
}

func (s *stubStrategy) Name() string    { return s.name }
func (s *stubStrategy) Weight() float64 { return s.weight }

func (s *stubStrategy) Applicable(ctx context.Context, _ id.UserID) (bool, error) {
	return s.applicable, s.applyErr
}

func (s *stubStrategy) Generate(ctx context.Context, _ id.UserID, limit int) ([]strategy.Candidate, error) {
	s.gotLimit = limit
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func candidate(userID id.UserID, score float64, reason string) strategy.Candidate {
	return strategy.Candidate{UserID: userID, Score: score, Reason: reason}
}

// TestWeightedAdditiveMerge pins the combination arithmetic: weighted
// scores add across strategies and cap at 1.0, reasons join into one
// sentence.
func TestWeightedAdditiveMerge(t *testing.T) {
	ctx := context.Background()
	shared, only := id.NewUserID(), id.NewUserID()

	x := &stubStrategy{
		name: "x", weight: 1.0, applicable: true,
		candidates: []strategy.Candidate{
			candidate(shared, 0.8, "You have 3 mutual connections"),
			candidate(only, 0.8, "You have 3 mutual connections"),
		},
	}
	y := &stubStrategy{
		name: "y", weight: 0.6, applicable: true,
		candidates: []strategy.Candidate{
			candidate(shared, 0.7, "You both work in Software"),
		},
	}

	results, err := New([]strategy.Strategy{x, y}).Suggest(ctx, id.NewUserID(), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// shared: 0.8*1.0 + 0.7*0.6 = 1.22, capped at 1.0.
	assert.Equal(t, shared, results[0].UserID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "You have 3 mutual connections and you both work in Software", results[0].Reason)

	// only: single contribution stays at its weighted score.
	assert.Equal(t, only, results[1].UserID)
	assert.InDelta(t, 0.8, results[1].Score, 1e-9)
	assert.Equal(t, "You have 3 mutual connections", results[1].Reason)
}

func TestFailureIsolation(t *testing.T) {
	ctx := context.Background()
	winner := id.NewUserID()

	healthy := &stubStrategy{
		name: "healthy", weight: 1.0, applicable: true,
		candidates: []strategy.Candidate{candidate(winner, 0.9, "You have 2 mutual connections")},
	}

	t.Run("generate failure is skipped", func(t *testing.T) {
		failing := &stubStrategy{name: "failing", weight: 1.0, applicable: true, err: errors.New("boom")}
		results, err := New([]strategy.Strategy{failing, healthy}).Suggest(ctx, id.NewUserID(), 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, winner, results[0].UserID)
	})

	t.Run("applicability failure is skipped", func(t *testing.T) {
		broken := &stubStrategy{name: "broken", weight: 1.0, applyErr: errors.New("directory down")}
		results, err := New([]strategy.Strategy{broken, healthy}).Suggest(ctx, id.NewUserID(), 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("timeout is skipped", func(t *testing.T) {
		slow := &stubStrategy{name: "slow", weight: 1.0, applicable: true, block: true}
		e := New([]strategy.Strategy{slow, healthy}, WithStrategyTimeout(10*time.Millisecond))

		start := time.Now()
		results, err := e.Suggest(ctx, id.NewUserID(), 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Less(t, time.Since(start), time.Second, "must not wait beyond the strategy timeout")
	})

	t.Run("inapplicable strategy is not asked to generate", func(t *testing.T) {
		idle := &stubStrategy{name: "idle", weight: 1.0, applicable: false,
			candidates: []strategy.Candidate{candidate(id.NewUserID(), 1.0, "nope")}}
		results, err := New([]strategy.Strategy{idle}).Suggest(ctx, id.NewUserID(), 10)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Zero(t, idle.gotLimit, "Generate must not run")
	})
}

func TestRankingAndLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("sorts by score then userID ascending", func(t *testing.T) {
		a, b, c := id.NewUserID(), id.NewUserID(), id.NewUserID()
		s := &stubStrategy{name: "s", weight: 1.0, applicable: true,
			candidates: []strategy.Candidate{
				candidate(a, 0.5, "r"),
				candidate(b, 0.9, "r"),
				candidate(c, 0.5, "r"),
			},
		}
		results, err := New([]strategy.Strategy{s}).Suggest(ctx, id.NewUserID(), 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, b, results[0].UserID)
		// The two 0.5 candidates order by userID.
		assert.Less(t, results[1].UserID.String(), results[2].UserID.String())
	})

	t.Run("strategies over-fetch twice the limit", func(t *testing.T) {
		s := &stubStrategy{name: "s", weight: 1.0, applicable: true}
		_, err := New([]strategy.Strategy{s}).Suggest(ctx, id.NewUserID(), 7)
		require.NoError(t, err)
		assert.Equal(t, 14, s.gotLimit)
	})

	t.Run("limit clamps to default and max", func(t *testing.T) {
		s := &stubStrategy{name: "s", weight: 1.0, applicable: true}
		e := New([]strategy.Strategy{s}, WithLimits(5, 20))

		_, err := e.Suggest(ctx, id.NewUserID(), 0)
		require.NoError(t, err)
		assert.Equal(t, 10, s.gotLimit, "default 5, over-fetched x2")

		_, err = e.Suggest(ctx, id.NewUserID(), 100)
		require.NoError(t, err)
		assert.Equal(t, 40, s.gotLimit, "max 20, over-fetched x2")
	})

	t.Run("returns at most limit after merging", func(t *testing.T) {
		var candidates []strategy.Candidate
		for i := 0; i < 8; i++ {
			candidates = append(candidates, candidate(id.NewUserID(), float64(i+1)/10, "r"))
		}
		s := &stubStrategy{name: "s", weight: 1.0, applicable: true, candidates: candidates}
		results, err := New([]strategy.Strategy{s}).Suggest(ctx, id.NewUserID(), 3)
		require.NoError(t, err)
		assert.Len(t, results, 3)
		assert.InDelta(t, 0.8, results[0].Score, 1e-9)
	})
}

func TestRunStrategy(t *testing.T) {
	ctx := context.Background()
	target := id.NewUserID()
	s := &stubStrategy{name: "mutual-connections", weight: 1.0, applicable: true,
		candidates: []strategy.Candidate{candidate(target, 0.4, "You have 1 mutual connection")}}
	e := New([]strategy.Strategy{s})

	t.Run("runs the named strategy unweighted and unmerged", func(t *testing.T) {
		results, err := e.RunStrategy(ctx, "mutual-connections", id.NewUserID(), 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 0.4, results[0].Score, "raw strategy score, no weight applied")
	})

	t.Run("unknown name yields NOT_FOUND", func(t *testing.T) {
		_, err := e.RunStrategy(ctx, "astrology", id.NewUserID(), 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("inapplicable strategy yields empty", func(t *testing.T) {
		off := &stubStrategy{name: "off", weight: 1.0, applicable: false}
		results, err := New([]strategy.Strategy{off}).RunStrategy(ctx, "off", id.NewUserID(), 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestApplicability(t *testing.T) {
	ctx := context.Background()
	on := &stubStrategy{name: "on", applicable: true}
	off := &stubStrategy{name: "off", applicable: false}
	broken := &stubStrategy{name: "broken", applyErr: errors.New("down")}

	e := New([]strategy.Strategy{on, off, broken})
	report, err := e.Applicability(ctx, id.NewUserID())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"on": true, "off": false, "broken": false}, report)
	assert.Equal(t, []string{"on", "off", "broken"}, e.Strategies())
}
