package api

import (
	"net/http"

	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/storage"
)

// maxLogoBytes caps logo uploads at 5 MiB.
const maxLogoBytes = 5 << 20

// handleUploadLogo stores the company logo in object storage and records
// its key. The raw request body is the image; Content-Type names its type.
func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "file storage not configured")
		return
	}
	companyID := middleware.GetCompanyID(r)

	contentType := r.Header.Get("Content-Type")
	switch contentType {
	case "image/png", "image/jpeg", "image/webp", "image/svg+xml":
	default:
		httputil.WriteBadRequest(w, "unsupported logo content type")
		return
	}

	key := storage.FileKey(companyID, "logo")
	body := http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := s.files.Put(r.Context(), key, body, contentType); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.companies.SetLogoKey(r.Context(), companyID, key); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"logoKey": key})
}

// handleDeleteLogo removes the stored logo.
func (s *Server) handleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "file storage not configured")
		return
	}
	companyID := middleware.GetCompanyID(r)

	key := storage.FileKey(companyID, "logo")
	if err := s.files.Delete(r.Context(), key); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.companies.SetLogoKey(r.Context(), companyID, ""); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
