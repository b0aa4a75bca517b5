package api

import (
	"net/http"

	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/notifications"
)

// handleListNotifications returns the caller's feed, newest first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	list, err := s.notifications.ListForUser(r.Context(), authCtx.User.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*notifications.Notification{}
	}
	httputil.WriteSuccess(w, map[string]any{"data": list})
}

// handleSeeNotification marks one of the caller's notifications as seen.
func (s *Server) handleSeeNotification(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathUUIDOrError(w, r, "notificationId")
	if !ok {
		return
	}

	n, err := s.notifications.MarkSeen(r.Context(), authCtx.User.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, n)
}

// handleDeleteNotification removes one of the caller's notifications.
func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathUUIDOrError(w, r, "notificationId")
	if !ok {
		return
	}

	if err := s.notifications.Delete(r.Context(), authCtx.User.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
