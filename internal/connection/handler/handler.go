// Package handler exposes the connection lifecycle over HTTP. Handlers
// stay thin: decode, delegate to the service, translate the result.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"linkup/internal/connection/models"
	"linkup/internal/platform/httpx"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
)

// Service defines the connection operations the HTTP layer needs.
type Service interface {
	SendRequest(ctx context.Context, addresseeID id.UserID, message string) (*models.ConnectionRecord, error)
	Accept(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error)
	Reject(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error)
	Block(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error)
	Cancel(ctx context.Context, connectionID id.ConnectionID) error
	Remove(ctx context.Context, connectionID id.ConnectionID) error
	GetByID(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error)
	ListAccepted(ctx context.Context) ([]*models.ConnectionRecord, error)
	ListPendingSent(ctx context.Context) ([]*models.ConnectionRecord, error)
	ListPendingReceived(ctx context.Context) ([]*models.ConnectionRecord, error)
	MutualCount(ctx context.Context, otherID id.UserID) (int, error)
	IsConnected(ctx context.Context, otherID id.UserID) (bool, error)
}

// Handler serves the /connections routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the connection routes. The surrounding middleware chain
// (recovery, request id, logging, auth) is applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/connections", func(r chi.Router) {
		r.Post("/", h.handleSendRequest)
		r.Get("/", h.handleListAccepted)
		r.Get("/pending/sent", h.handleListPendingSent)
		r.Get("/pending/received", h.handleListPendingReceived)
		r.Get("/mutual/{userID}", h.handleMutualCount)
		r.Get("/status/{userID}", h.handleStatus)
		r.Route("/{connectionID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Post("/accept", h.handleAccept)
			r.Post("/reject", h.handleReject)
			r.Post("/block", h.handleBlock)
			r.Post("/cancel", h.handleCancel)
			r.Delete("/", h.handleRemove)
		})
	})
}

type sendRequestBody struct {
	AddresseeID string `json:"addressee_id"`
	Message     string `json:"message"`
}

func (h *Handler) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	addresseeID, err := id.ParseUserID(body.AddresseeID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	record, err := h.service.SendRequest(ctx, addresseeID, body.Message)
	if err != nil {
		h.logFailure(ctx, "send request failed", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Accept)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Reject)
}

func (h *Handler) handleBlock(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Block)
}

func (h *Handler) respond(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error),
) {
	ctx := r.Context()
	connectionID, err := id.ParseConnectionID(chi.URLParam(r, "connectionID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	record, err := op(ctx, connectionID)
	if err != nil {
		h.logFailure(ctx, "connection transition failed", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.Cancel)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.Remove)
}

func (h *Handler) remove(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, connectionID id.ConnectionID) error,
) {
	ctx := r.Context()
	connectionID, err := id.ParseConnectionID(chi.URLParam(r, "connectionID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := op(ctx, connectionID); err != nil {
		h.logFailure(ctx, "connection deletion failed", err)
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	connectionID, err := id.ParseConnectionID(chi.URLParam(r, "connectionID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	record, err := h.service.GetByID(ctx, connectionID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListAccepted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListAccepted)
}

func (h *Handler) handleListPendingSent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListPendingSent)
}

func (h *Handler) handleListPendingReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListPendingReceived)
}

func (h *Handler) list(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context) ([]*models.ConnectionRecord, error),
) {
	ctx := r.Context()
	records, err := op(ctx)
	if err != nil {
		h.logFailure(ctx, "connection list failed", err)
		httpx.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*models.ConnectionRecord{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"connections": records})
}

func (h *Handler) handleMutualCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	otherID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	count, err := h.service.MutualCount(ctx, otherID)
	if err != nil {
		h.logFailure(ctx, "mutual count failed", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	otherID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	connected, err := h.service.IsConnected(ctx, otherID)
	if err != nil {
		h.logFailure(ctx, "connection status failed", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err)
}
