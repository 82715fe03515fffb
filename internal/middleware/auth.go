package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/papertrail/internal/auth"
	"github.com/dukerupert/papertrail/internal/domain"
)

type contextKey string

// TokenValidator validates bearer tokens. auth.TokenManager implements it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// RequireAuth validates the Authorization bearer token and stores the owner
// in the request context. Requests without a valid token get 401.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondWithError(w, r, domain.Unauthorized("auth.validate", "Authentication required"))
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				respondWithError(w, r, domain.Unauthorized("auth.validate", "Invalid or expired token"))
				return
			}

			ownerID, err := claims.OwnerID()
			if err != nil {
				respondWithError(w, r, domain.Unauthorized("auth.validate", "Invalid or expired token"))
				return
			}

			ctx := domain.NewContextWithOwner(r.Context(), &domain.Owner{ID: ownerID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
