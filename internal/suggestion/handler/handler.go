// Package handler exposes the suggestion engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"linkup/internal/platform/httpx"
	"linkup/internal/suggestion/strategy"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
	"linkup/pkg/requestcontext"
)

// Engine defines the suggestion operations the HTTP layer needs.
type Engine interface {
	Suggest(ctx context.Context, userID id.UserID, limit int) ([]strategy.Candidate, error)
	RunStrategy(ctx context.Context, name string, userID id.UserID, limit int) ([]strategy.Candidate, error)
	Applicability(ctx context.Context, userID id.UserID) (map[string]bool, error)
	Strategies() []string
}

// Handler serves the /suggestions routes.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

func New(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts the suggestion routes. Auth middleware is applied by the
// caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/suggestions", func(r chi.Router) {
		r.Get("/", h.handleSuggest)
		r.Get("/applicability", h.handleApplicability)
		r.Get("/strategies/{name}", h.handleRunStrategy)
	})
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.CallerID(ctx)
	if callerID.IsNil() {
		httpx.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated caller"))
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	candidates, err := h.engine.Suggest(ctx, callerID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "suggestion request failed", "error", err)
		httpx.WriteError(w, err)
		return
	}
	if candidates == nil {
		candidates = []strategy.Candidate{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": candidates})
}

func (h *Handler) handleRunStrategy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.CallerID(ctx)
	if callerID.IsNil() {
		httpx.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated caller"))
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	candidates, err := h.engine.RunStrategy(ctx, name, callerID, limit)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "strategy run failed", "strategy", name, "error", err)
		}
		httpx.WriteError(w, err)
		return
	}
	if candidates == nil {
		candidates = []strategy.Candidate{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"strategy":    name,
		"suggestions": candidates,
	})
}

func (h *Handler) handleApplicability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.CallerID(ctx)
	if callerID.IsNil() {
		httpx.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated caller"))
		return
	}

	report, err := h.engine.Applicability(ctx, callerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "applicability report failed", "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"strategies":    h.engine.Strategies(),
		"applicability": report,
	})
}

// parseLimit reads the optional limit query parameter. Zero means "use the
// engine default"; the engine clamps the upper bound.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "limit must be a non-negative integer, got %q", raw)
	}
	return limit, nil
}
