package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gengate/gengate/app"
	"github.com/gengate/gengate/domain/identity"
)

// Authenticate resolves the Authorization bearer credential and stores the
// identity in the request context. Credential contents are never logged.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := bearerToken(r)
		if credential == "" {
			writeError(w, http.StatusUnauthorized, "missing credential")
			return
		}

		id, err := h.resolver.Resolve(r.Context(), credential)
		if err != nil {
			if h.metrics != nil {
				h.metrics.AuthFailures.WithLabelValues("bearer").Inc()
			}
			switch {
			case errors.Is(err, app.ErrUnauthenticated), errors.Is(err, app.ErrInvalidCredential):
				writeError(w, http.StatusUnauthorized, "invalid credential")
			default:
				h.logger.Error().Err(err).Msg("identity resolution failed")
				writeError(w, http.StatusServiceUnavailable, "service unavailable")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// RequireAdmin allows only admin and super_admin identities through.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing credential")
			return
		}
		if err := app.RequireRole(&id, identity.RoleAdmin); err != nil {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
