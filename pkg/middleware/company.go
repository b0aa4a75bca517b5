package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/memberbase/memberbase/pkg/contextkeys"
	"github.com/memberbase/memberbase/pkg/httputil"
)

// CompanyContext resolves the {companyId} path variable and pins the
// request to that company. Routes without the variable pass through
// untouched.
func CompanyContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := mux.Vars(r)["companyId"]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid company id")
			return
		}
		ctx := contextkeys.WithCompany(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCompanyID extracts the company id the request targets, or uuid.Nil.
func GetCompanyID(r *http.Request) uuid.UUID {
	if id, ok := r.Context().Value(contextkeys.CompanyKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
