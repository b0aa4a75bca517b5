package api

import (
	"fmt"
	"net/http"

	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/pagination"
	"github.com/memberbase/memberbase/pkg/rbac"
)

type roleRequest struct {
	UserID string        `json:"userId"`
	Name   rbac.RoleName `json:"name"`
}

// handleListRoles pages through the company's grants.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	paginate(s, w, r, s.roles, "roles", pagination.Filter{"domain": companyID})
}

// handleCreateRole grants a role in the company. The role name must come
// from the configured set; the same (user, domain, name) can only be
// granted once.
func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)

	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	userID, err := parseUUIDField(req.UserID, "userId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if !s.grants.Recognized(req.Name) {
		httputil.WriteBadRequest(w, fmt.Sprintf("unknown role name %q", req.Name))
		return
	}

	current, err := s.roles.CountForDomain(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := rbac.CheckQuota("roles", current, s.maxRolesPerCompany); err != nil {
		s.writeError(w, r, err)
		return
	}

	role := &rbac.Role{UserID: userID, Domain: companyID, Name: req.Name}
	if err := s.roles.CreateRole(r.Context(), role); err != nil {
		s.writeError(w, r, err)
		return
	}

	_ = s.checker.InvalidateUser(r.Context(), userID)

	// Best effort: the grant stands even if the feed write fails.
	if s.notifications != nil {
		_, _ = s.notifications.Create(r.Context(), userID,
			"Role granted", fmt.Sprintf("You were granted the %s role", req.Name))
	}

	httputil.WriteCreated(w, role)
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	roleID, ok := httputil.ParsePathUUIDOrError(w, r, "roleId")
	if !ok {
		return
	}

	role, err := s.roles.GetRole(r.Context(), roleID, companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// handleUpdateRole replaces the grant's role name. Replace, not merge: the
// user ends up with exactly the new name on this grant.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	roleID, ok := httputil.ParsePathUUIDOrError(w, r, "roleId")
	if !ok {
		return
	}

	var req struct {
		Name rbac.RoleName `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !s.grants.Recognized(req.Name) {
		httputil.WriteBadRequest(w, fmt.Sprintf("unknown role name %q", req.Name))
		return
	}

	// Scope check before mutation so a foreign role id reads as not found.
	existing, err := s.roles.GetRole(r.Context(), roleID, companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := s.roles.UpdateRoleName(r.Context(), roleID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	_ = s.checker.InvalidateUser(r.Context(), existing.UserID)
	httputil.WriteSuccess(w, role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	roleID, ok := httputil.ParsePathUUIDOrError(w, r, "roleId")
	if !ok {
		return
	}

	existing, err := s.roles.GetRole(r.Context(), roleID, companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.roles.DeleteRole(r.Context(), roleID); err != nil {
		s.writeError(w, r, err)
		return
	}

	_ = s.checker.InvalidateUser(r.Context(), existing.UserID)
	httputil.WriteNoContent(w)
}

// handleUserRoles lists one user's grants within the company.
func (s *Server) handleUserRoles(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r)
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "userId")
	if !ok {
		return
	}

	roles, err := s.roles.RolesForUser(r.Context(), userID, companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if roles == nil {
		roles = []*rbac.Role{}
	}
	httputil.WriteSuccess(w, map[string]any{"data": roles})
}
