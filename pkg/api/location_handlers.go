package api

import (
	"net/http"

	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/locations"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/pagination"
)

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	paginate(s, w, r, s.locations, "locations", pagination.Filter{"companyId": companyID})
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)

	var req locations.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	location, err := s.locations.Create(r.Context(), companyID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, location)
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	locationID, ok := httputil.ParsePathUUIDOrError(w, r, "locationId")
	if !ok {
		return
	}

	location, err := s.locations.Get(r.Context(), companyID, locationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, location)
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	locationID, ok := httputil.ParsePathUUIDOrError(w, r, "locationId")
	if !ok {
		return
	}

	var req locations.UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	location, err := s.locations.Update(r.Context(), companyID, locationID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, location)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	locationID, ok := httputil.ParsePathUUIDOrError(w, r, "locationId")
	if !ok {
		return
	}

	if err := s.locations.Delete(r.Context(), companyID, locationID); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
