package rbac

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/memberbase/memberbase/pkg/auth"
	"github.com/memberbase/memberbase/pkg/contextkeys"
	"github.com/memberbase/memberbase/pkg/httputil"
)

// Middleware gates HTTP routes on capability checks.
type Middleware struct {
	checker *Checker
}

// NewMiddleware creates route middleware over the given checker.
func NewMiddleware(checker *Checker) *Middleware {
	return &Middleware{checker: checker}
}

// Require returns middleware that allows the request only when the
// authenticated user holds the capability in the company the route targets.
// The company id comes from the request context when a company middleware
// already ran, otherwise from the {companyId} path variable. Denials are a
// uniform 403 regardless of which roles exist.
func (m *Middleware) Require(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, ok := r.Context().Value(contextkeys.AuthKey).(*auth.Context)
			if !ok || authCtx == nil || authCtx.User == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			domain, ok := requestDomain(r)
			if !ok {
				httputil.WriteBadRequest(w, "missing company id")
				return
			}

			err := m.checker.Authorize(r.Context(), authCtx.User.ID, domain, capability)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case err == ErrForbidden:
				httputil.WriteForbidden(w, "forbidden")
			default:
				httputil.WriteInternalError(w, err)
			}
		})
	}
}

// RequireGlobal is Require scoped to the global domain, for routes that are
// not bound to a single company.
func (m *Middleware) RequireGlobal(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, ok := r.Context().Value(contextkeys.AuthKey).(*auth.Context)
			if !ok || authCtx == nil || authCtx.User == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			err := m.checker.Authorize(r.Context(), authCtx.User.ID, GlobalDomain, capability)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case err == ErrForbidden:
				httputil.WriteForbidden(w, "forbidden")
			default:
				httputil.WriteInternalError(w, err)
			}
		})
	}
}

func requestDomain(r *http.Request) (uuid.UUID, bool) {
	if id, ok := r.Context().Value(contextkeys.CompanyKey).(uuid.UUID); ok {
		return id, true
	}
	if raw, ok := mux.Vars(r)["companyId"]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
