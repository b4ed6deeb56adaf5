package middleware

import (
	"errors"
	"net/http"

	"github.com/eventboard/server/internal/api/problem"
	"github.com/eventboard/server/internal/auth"
	"github.com/eventboard/server/internal/metrics"
)

// invalidTokenMessage is the only token failure text clients see.
const invalidTokenMessage = "invalid or expired token"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid token before the wrapped
// handler runs. Accepts "Authorization: Bearer <token>" or a bare token.
func RequireAuth(tokens TokenValidator, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err == nil {
				var claims *auth.Claims
				claims, err = tokens.Validate(raw)
				if err == nil {
					ctx := WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Role: claims.Role})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			reason := "invalid_token"
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				reason = "missing_token"
			case errors.Is(err, auth.ErrExpiredToken):
				reason = "expired_token"
			}
			metrics.AuthFailures.WithLabelValues(reason).Inc()
			w.Header().Set("WWW-Authenticate", `Bearer realm="eventboard"`)
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env,
				problem.WithDetail(invalidTokenMessage))
		})
	}
}
