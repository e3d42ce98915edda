// internal/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/repository"
)

type contextKey string

const orgContextKey contextKey = "org"

// CheckAPIKey resolves "Authorization: Bearer <uuid>" to the owning org
// and stores it on the request context. 400 on a missing or malformed
// header, 401 on an unknown key.
func CheckAPIKey(orgs repository.OrgRepositoryInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "missing bearer token", http.StatusBadRequest)
				return
			}

			apiKey, err := uuid.Parse(parts[1])
			if err != nil {
				http.Error(w, "missing bearer token", http.StatusBadRequest)
				return
			}

			org, err := orgs.GetByAPIKey(apiKey.String())
			if err != nil || org == nil {
				http.Error(w, "API key is invalid", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), orgContextKey, org)))
		})
	}
}

// OrgFromContext returns the org placed on the context by CheckAPIKey.
func OrgFromContext(ctx context.Context) *model.Org {
	org, _ := ctx.Value(orgContextKey).(*model.Org)
	return org
}
