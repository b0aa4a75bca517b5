package api

import (
	"net/http"

	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/plans"
)

// handleGetPlan returns the tail of the company's plan chain.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	plan, err := s.plans.Latest(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, plan)
}

// handleStartPlan starts a fresh plan, cancelling whatever was running.
func (s *Server) handleStartPlan(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req plans.StartRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	plan, err := s.plans.Start(r.Context(), companyID, authCtx.User.ID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, plan)
}

// handleExtendPlan queues a plan behind the active one.
func (s *Server) handleExtendPlan(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req plans.ExtendRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	plan, err := s.plans.Extend(r.Context(), companyID, authCtx.User.ID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, plan)
}

// handleCancelPlan cancels the company's plan chain.
func (s *Server) handleCancelPlan(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	if err := s.plans.Cancel(r.Context(), companyID); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
