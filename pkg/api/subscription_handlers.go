package api

import (
	"net/http"

	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/pagination"
	"github.com/memberbase/memberbase/pkg/subscriptions"
)

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	paginate(s, w, r, s.subscriptions, "subscriptions", pagination.Filter{"companyId": companyID})
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)

	var req subscriptions.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	sub, err := s.subscriptions.Create(r.Context(), companyID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, sub)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	subID, ok := httputil.ParsePathUUIDOrError(w, r, "subscriptionId")
	if !ok {
		return
	}

	sub, err := s.subscriptions.Get(r.Context(), companyID, subID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, sub)
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	subID, ok := httputil.ParsePathUUIDOrError(w, r, "subscriptionId")
	if !ok {
		return
	}

	if err := s.subscriptions.Cancel(r.Context(), companyID, subID); err != nil {
		s.writeError(w, r, err)
		return
	}

	sub, err := s.subscriptions.Get(r.Context(), companyID, subID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, sub)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	subID, ok := httputil.ParsePathUUIDOrError(w, r, "subscriptionId")
	if !ok {
		return
	}

	if err := s.subscriptions.Delete(r.Context(), companyID, subID); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
