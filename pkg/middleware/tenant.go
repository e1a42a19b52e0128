package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/database"
)

// orgHeader carries the caller's organization identity. The upstream gateway
// authenticates the caller and stamps this header; this service only scopes.
const orgHeader = "X-Organization-ID"

// Tenant returns middleware that establishes a tenant-scoped database
// connection for the request and releases it afterwards. Requests without a
// valid organization id are rejected before any repository can run.
func Tenant(provider *database.TenantScopeProvider, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			orgID, err := uuid.Parse(r.Header.Get(orgHeader))
			if err != nil {
				http.Error(w, "missing or invalid organization id", http.StatusBadRequest)
				return
			}

			ctx, cleanup, err := provider.WithTenantScope(r.Context(), orgID)
			if err != nil {
				logger.Error("failed to establish tenant scope",
					zap.String("organization_id", orgID.String()),
					zap.Error(err))
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			defer cleanup()

			next(w, r.WithContext(ctx))
		}
	}
}
