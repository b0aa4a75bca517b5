package api

import (
	"net/http"

	"github.com/memberbase/memberbase/pkg/companies"
	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/middleware"
)

// handleMe returns the authenticated user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, authCtx.User)
}

// handleMyCompanies lists every company the caller holds any role in.
func (s *Server) handleMyCompanies(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	list, err := s.companies.ListForUser(r.Context(), authCtx.User.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]any{"data": list})
}

// handleCreateCompany creates a company owned by the caller. Any
// authenticated user may create companies, up to the owner quota.
func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req companies.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	company, err := s.companies.Create(r.Context(), authCtx.User.ID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// The creator just gained the owner role; cached denials for them are
	// stale now.
	_ = s.checker.InvalidateUser(r.Context(), authCtx.User.ID)

	httputil.WriteCreated(w, company)
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	company, err := s.companies.Get(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, company)
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)

	var req companies.UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	company, err := s.companies.Update(r.Context(), companyID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, company)
}

func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	if err := s.companies.Delete(r.Context(), companyID); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
