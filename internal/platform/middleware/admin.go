package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"linkup/pkg/requestcontext"
)

const adminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards operational endpoints. The configured value is a
// bcrypt hash so the plaintext token never lives in the environment of the
// running process.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(adminTokenHeader)
			if tokenHash == "" || token == "" ||
				bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				logger.WarnContext(r.Context(), "admin token rejected",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"FORBIDDEN"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
