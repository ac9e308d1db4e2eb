// Package httpx centralizes JSON response writing and the single mapping
// from domain error codes to HTTP statuses.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "linkup/pkg/domain-errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteJSON writes v with the given status. Encoding failures are ignored;
// the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates a domain error into the JSON error envelope. Non
// domain errors are masked as INTERNAL so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = dErrors.New(dErrors.CodeInternal, "internal error")
	}
	WriteJSON(w, statusFor(de.Code), errorEnvelope{Error: errorBody{
		Code:    string(de.Code),
		Message: de.Message,
	}})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeUnauthorizedAction, dErrors.CodeUnauthorizedAccess:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeDuplicateRequest, dErrors.CodeInvalidStateTransition:
		return http.StatusConflict
	case dErrors.CodeSelfConnection, dErrors.CodeAddresseeUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
