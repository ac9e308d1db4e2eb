// Package engine runs the registered suggestion strategies in parallel and
// merges their weighted outputs into one ranked list.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	suggmetrics "linkup/internal/suggestion/metrics"
	"linkup/internal/suggestion/strategy"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
)

var tracer = otel.Tracer("linkup.suggestion")

const (
	defaultLimit           = 10
	defaultMaxLimit        = 50
	defaultStrategyTimeout = 2 * time.Second

	// Strategies are asked for more than the final limit so that a
	// candidate ranked low by one strategy can still climb once another
	// strategy corroborates it.
	overFetchFactor = 2
)

// Engine fans a user's suggestion request out to every applicable strategy
// and merges the results. A strategy failure or timeout is logged and
// skipped; the remaining strategies still produce a ranked list.
type Engine struct {
	strategies      []strategy.Strategy
	strategyTimeout time.Duration
	defaultLimit    int
	maxLimit        int
	logger          *slog.Logger
	metrics         *suggmetrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *suggmetrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStrategyTimeout bounds each strategy's generate call.
func WithStrategyTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.strategyTimeout = timeout }
}

// WithLimits sets the default and maximum candidate counts per request.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
	}
}

// New constructs an Engine over an explicit, ordered strategy collection.
// Merge order follows registration order, which keeps combined reasons
// deterministic.
func New(strategies []strategy.Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategies:      strategies,
		strategyTimeout: defaultStrategyTimeout,
		defaultLimit:    defaultLimit,
		maxLimit:        defaultMaxLimit,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	if limit > e.maxLimit {
		return e.maxLimit
	}
	return limit
}

// Suggest returns the top limit ranked candidates for userID.
func (e *Engine) Suggest(ctx context.Context, userID id.UserID, limit int) ([]strategy.Candidate, error) {
	start := time.Now()
	limit = e.clampLimit(limit)

	ctx, span := tracer.Start(ctx, "suggestion.Suggest",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.Int("limit", limit),
		))
	defer span.End()

	// Each strategy writes only its own slot; the merge happens
	// single-threaded afterwards, in registration order.
	results := make([][]strategy.Candidate, len(e.strategies))
	g, groupCtx := errgroup.WithContext(ctx)
	for i, s := range e.strategies {
		g.Go(func() error {
			results[i] = e.runOne(groupCtx, s, userID, limit*overFetchFactor)
			return nil
		})
	}
	// Strategies never surface errors, so Wait cannot fail.
	_ = g.Wait()

	merged := mergeWeighted(e.strategies, results)
	rankCandidates(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	span.SetAttributes(attribute.Int("candidates", len(merged)))
	if e.metrics != nil {
		e.metrics.ObserveRequest(start, len(merged))
	}
	return merged, nil
}

// runOne executes a single strategy under the per-strategy timeout. Any
// failure, including the applicability check, skips the strategy.
func (e *Engine) runOne(ctx context.Context, s strategy.Strategy, userID id.UserID, limit int) []strategy.Candidate {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.strategyTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "suggestion.strategy."+s.Name())
	defer span.End()

	applicable, err := s.Applicable(ctx, userID)
	if err != nil {
		e.skip(ctx, s, span, err)
		return nil
	}
	if !applicable {
		span.SetAttributes(attribute.Bool("applicable", false))
		return nil
	}

	candidates, err := s.Generate(ctx, userID, limit)
	if err != nil {
		e.skip(ctx, s, span, err)
		return nil
	}

	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	if e.metrics != nil {
		e.metrics.ObserveStrategy(s.Name(), start)
	}
	return candidates
}

func (e *Engine) skip(ctx context.Context, s strategy.Strategy, span trace.Span, err error) {
	span.RecordError(err)
	e.logger.WarnContext(ctx, "suggestion strategy skipped",
		"strategy", s.Name(),
		"error", err,
	)
	if e.metrics != nil {
		e.metrics.IncrementStrategyFailure(s.Name())
	}
}

// RunStrategy executes one named strategy in isolation, bypassing the merge.
func (e *Engine) RunStrategy(ctx context.Context, name string, userID id.UserID, limit int) ([]strategy.Candidate, error) {
	limit = e.clampLimit(limit)
	for _, s := range e.strategies {
		if s.Name() != name {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, e.strategyTimeout)
		defer cancel()

		applicable, err := s.Applicable(ctx, userID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "strategy applicability check failed")
		}
		if !applicable {
			return nil, nil
		}
		candidates, err := s.Generate(ctx, userID, limit)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "strategy execution failed")
		}
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		return candidates, nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown strategy %q", name)
}

// Applicability reports, per registered strategy, whether it would run for
// userID. A strategy whose check fails reports false.
func (e *Engine) Applicability(ctx context.Context, userID id.UserID) (map[string]bool, error) {
	out := make(map[string]bool, len(e.strategies))
	for _, s := range e.strategies {
		applicable, err := s.Applicable(ctx, userID)
		if err != nil {
			e.logger.WarnContext(ctx, "applicability check failed",
				"strategy", s.Name(),
				"error", err,
			)
			applicable = false
		}
		out[s.Name()] = applicable
	}
	return out, nil
}

// Strategies returns the registered strategy names in order.
func (e *Engine) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// mergeWeighted folds the per-strategy results into one candidate per user.
// Scores add (weighted, capped at 1.0); reasons concatenate into a single
// sentence.
func mergeWeighted(strategies []strategy.Strategy, results [][]strategy.Candidate) []strategy.Candidate {
	byUser := make(map[id.UserID]int)
	var merged []strategy.Candidate

	for i, s := range strategies {
		weight := s.Weight()
		for _, candidate := range results[i] {
			weighted := candidate.Score * weight
			if idx, seen := byUser[candidate.UserID]; seen {
				existing := &merged[idx]
				existing.Score = min(1.0, existing.Score+weighted)
				existing.Reason = joinReasons(existing.Reason, candidate.Reason)
				continue
			}
			byUser[candidate.UserID] = len(merged)
			merged = append(merged, strategy.Candidate{
				UserID: candidate.UserID,
				Score:  weighted,
				Reason: candidate.Reason,
			})
		}
	}
	return merged
}

// rankCandidates sorts by score descending; equal scores order by userID
// ascending so the ranking is deterministic.
func rankCandidates(candidates []strategy.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID.String() < candidates[j].UserID.String()
	})
}

// joinReasons builds "first and second", lower-casing the second reason's
// leading rune so the sentence reads naturally.
func joinReasons(first, second string) string {
	if second == "" {
		return first
	}
	r, size := utf8.DecodeRuneInString(second)
	return first + " and " + string(unicode.ToLower(r)) + second[size:]
}
