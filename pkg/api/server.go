// Package api wires the HTTP surface: routing, handlers per domain, and
// the error-to-status mapping every handler shares.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/memberbase/memberbase/pkg/companies"
	"github.com/memberbase/memberbase/pkg/httputil"
	"github.com/memberbase/memberbase/pkg/locations"
	"github.com/memberbase/memberbase/pkg/middleware"
	"github.com/memberbase/memberbase/pkg/notifications"
	"github.com/memberbase/memberbase/pkg/observability"
	"github.com/memberbase/memberbase/pkg/pagination"
	"github.com/memberbase/memberbase/pkg/plans"
	"github.com/memberbase/memberbase/pkg/rbac"
	"github.com/memberbase/memberbase/pkg/subscriptions"
)

// CompanyService is the company domain as the handlers see it.
type CompanyService interface {
	pagination.Repository[*companies.Company]
	Create(ctx context.Context, ownerID uuid.UUID, req *companies.CreateRequest) (*companies.Company, error)
	Get(ctx context.Context, id uuid.UUID) (*companies.Company, error)
	Update(ctx context.Context, id uuid.UUID, req *companies.UpdateRequest) (*companies.Company, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetLogoKey(ctx context.Context, id uuid.UUID, key string) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*companies.Company, error)
}

// LocationService is the location domain as the handlers see it.
type LocationService interface {
	pagination.Repository[*locations.Location]
	Create(ctx context.Context, companyID uuid.UUID, req *locations.CreateRequest) (*locations.Location, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*locations.Location, error)
	Update(ctx context.Context, companyID, id uuid.UUID, req *locations.UpdateRequest) (*locations.Location, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// SubscriptionService is the subscription domain as the handlers see it.
type SubscriptionService interface {
	pagination.Repository[*subscriptions.Subscription]
	Create(ctx context.Context, companyID uuid.UUID, req *subscriptions.CreateRequest) (*subscriptions.Subscription, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*subscriptions.Subscription, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// PlanService is the pricing plan domain as the handlers see it.
type PlanService interface {
	Start(ctx context.Context, companyID, userID uuid.UUID, req *plans.StartRequest) (*plans.Plan, error)
	Extend(ctx context.Context, companyID, userID uuid.UUID, req *plans.ExtendRequest) (*plans.Plan, error)
	Latest(ctx context.Context, companyID uuid.UUID) (*plans.Plan, error)
	Cancel(ctx context.Context, companyID uuid.UUID) error
}

// NotificationService is the notification feed as the handlers see it.
type NotificationService interface {
	Create(ctx context.Context, userID uuid.UUID, title, body string) (*notifications.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*notifications.Notification, error)
	MarkSeen(ctx context.Context, userID, id uuid.UUID) (*notifications.Notification, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// RoleService is the slice of the role store the handlers use.
type RoleService interface {
	pagination.Repository[*rbac.Role]
	CreateRole(ctx context.Context, role *rbac.Role) error
	GetRole(ctx context.Context, id, domain uuid.UUID) (*rbac.Role, error)
	UpdateRoleName(ctx context.Context, id uuid.UUID, name rbac.RoleName) (*rbac.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	RolesForUser(ctx context.Context, userID, domain uuid.UUID) ([]*rbac.Role, error)
	CountForDomain(ctx context.Context, domain uuid.UUID) (int64, error)
}

// FileStore is the object storage slice used for company uploads.
type FileStore interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Config carries the server's collaborators.
type Config struct {
	Companies     CompanyService
	Locations     LocationService
	Subscriptions SubscriptionService
	Plans         PlanService
	Notifications NotificationService
	Roles         RoleService
	Checker       *rbac.Checker
	Grants        rbac.Grants
	Files         FileStore

	Auth    *middleware.AuthMiddleware
	Logger  *observability.Logger
	Metrics *observability.Metrics

	MaxRolesPerCompany int64
}

// Server is the HTTP API server.
type Server struct {
	router *mux.Router

	companies     CompanyService
	locations     LocationService
	subscriptions SubscriptionService
	plans         PlanService
	notifications NotificationService
	roles         RoleService
	checker       *rbac.Checker
	grants        rbac.Grants
	files         FileStore
	logger        *observability.Logger
	metrics       *observability.Metrics

	maxRolesPerCompany int64
}

// NewServer builds the router and registers all routes.
func NewServer(cfg Config) *Server {
	s := &Server{
		router:             mux.NewRouter(),
		companies:          cfg.Companies,
		locations:          cfg.Locations,
		subscriptions:      cfg.Subscriptions,
		plans:              cfg.Plans,
		notifications:      cfg.Notifications,
		roles:              cfg.Roles,
		checker:            cfg.Checker,
		grants:             cfg.Grants,
		files:              cfg.Files,
		logger:             cfg.Logger,
		metrics:            cfg.Metrics,
		maxRolesPerCompany: cfg.MaxRolesPerCompany,
	}

	perms := rbac.NewMiddleware(cfg.Checker)

	s.router.Use(middleware.RequestID)
	if cfg.Logger != nil {
		s.router.Use(middleware.Logging(cfg.Logger))
	}
	if cfg.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if cfg.Auth != nil {
		api.Use(cfg.Auth.Handler)
	}
	api.Use(middleware.CompanyContext)

	// Caller-scoped routes need authentication only.
	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	api.HandleFunc("/me/companies", s.handleMyCompanies).Methods(http.MethodGet)
	api.HandleFunc("/companies", s.handleCreateCompany).Methods(http.MethodPost)
	api.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationId}", s.handleSeeNotification).Methods(http.MethodPut)
	api.HandleFunc("/notifications/{notificationId}", s.handleDeleteNotification).Methods(http.MethodDelete)

	read := perms.Require(rbac.CapabilityRead)
	full := perms.Require(rbac.CapabilityFull)

	company := api.PathPrefix("/companies/{companyId}").Subrouter()
	company.Handle("", read(http.HandlerFunc(s.handleGetCompany))).Methods(http.MethodGet)
	company.Handle("", full(http.HandlerFunc(s.handleUpdateCompany))).Methods(http.MethodPatch)
	company.Handle("", full(http.HandlerFunc(s.handleDeleteCompany))).Methods(http.MethodDelete)
	company.Handle("/logo", full(http.HandlerFunc(s.handleUploadLogo))).Methods(http.MethodPut)
	company.Handle("/logo", full(http.HandlerFunc(s.handleDeleteLogo))).Methods(http.MethodDelete)

	company.Handle("/roles", read(http.HandlerFunc(s.handleListRoles))).Methods(http.MethodGet)
	company.Handle("/roles", full(http.HandlerFunc(s.handleCreateRole))).Methods(http.MethodPost)
	company.Handle("/roles/{roleId}", read(http.HandlerFunc(s.handleGetRole))).Methods(http.MethodGet)
	company.Handle("/roles/{roleId}", full(http.HandlerFunc(s.handleUpdateRole))).Methods(http.MethodPatch)
	company.Handle("/roles/{roleId}", full(http.HandlerFunc(s.handleDeleteRole))).Methods(http.MethodDelete)
	company.Handle("/users/{userId}/roles", read(http.HandlerFunc(s.handleUserRoles))).Methods(http.MethodGet)

	company.Handle("/locations", read(http.HandlerFunc(s.handleListLocations))).Methods(http.MethodGet)
	company.Handle("/locations", full(http.HandlerFunc(s.handleCreateLocation))).Methods(http.MethodPost)
	company.Handle("/locations/{locationId}", read(http.HandlerFunc(s.handleGetLocation))).Methods(http.MethodGet)
	company.Handle("/locations/{locationId}", full(http.HandlerFunc(s.handleUpdateLocation))).Methods(http.MethodPatch)
	company.Handle("/locations/{locationId}", full(http.HandlerFunc(s.handleDeleteLocation))).Methods(http.MethodDelete)

	company.Handle("/subscriptions", read(http.HandlerFunc(s.handleListSubscriptions))).Methods(http.MethodGet)
	company.Handle("/subscriptions", full(http.HandlerFunc(s.handleCreateSubscription))).Methods(http.MethodPost)
	company.Handle("/subscriptions/{subscriptionId}", read(http.HandlerFunc(s.handleGetSubscription))).Methods(http.MethodGet)
	company.Handle("/subscriptions/{subscriptionId}/cancel", full(http.HandlerFunc(s.handleCancelSubscription))).Methods(http.MethodPost)
	company.Handle("/subscriptions/{subscriptionId}", full(http.HandlerFunc(s.handleDeleteSubscription))).Methods(http.MethodDelete)

	company.Handle("/pricing-plan", read(http.HandlerFunc(s.handleGetPlan))).Methods(http.MethodGet)
	company.Handle("/pricing-plan", full(http.HandlerFunc(s.handleStartPlan))).Methods(http.MethodPost)
	company.Handle("/pricing-plan/extend", full(http.HandlerFunc(s.handleExtendPlan))).Methods(http.MethodPost)
	company.Handle("/pricing-plan", full(http.HandlerFunc(s.handleCancelPlan))).Methods(http.MethodDelete)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// writeError maps domain errors onto HTTP statuses. Everything unmapped is
// a 500 with the detail kept out of the response body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var quota *rbac.QuotaExceededError
	switch {
	case errors.Is(err, pagination.ErrValidation):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, rbac.ErrForbidden):
		httputil.WriteForbidden(w, "forbidden")
	case errors.As(err, &quota):
		if s.metrics != nil {
			s.metrics.QuotaRejectionsTotal.WithLabelValues(quota.Resource).Inc()
		}
		httputil.WriteForbidden(w, quota.Error())
	case errors.Is(err, companies.ErrNotFound),
		errors.Is(err, locations.ErrNotFound),
		errors.Is(err, subscriptions.ErrNotFound),
		errors.Is(err, plans.ErrNotFound),
		errors.Is(err, notifications.ErrNotFound),
		errors.Is(err, rbac.ErrNotFound):
		httputil.WriteErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, companies.ErrSlugTaken):
		httputil.WriteConflict(w, err.Error())
	default:
		if s.logger != nil {
			observability.FromContext(r.Context()).WithError(err).Error("request failed")
		}
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// paginate runs one keyset page over repo. scope pins tenant-scoped
// listings; the client's extra query keys merge in underneath it so a
// request can never filter its way out of its company. resource labels
// the pagination metrics.
func paginate[T pagination.Item](s *Server, w http.ResponseWriter, r *http.Request, repo pagination.Repository[T], resource string, scope pagination.Filter) {
	params, err := pagination.ParamsFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	paginator := pagination.New(repo)
	if err := paginator.SetParams(params); err != nil {
		s.writeError(w, r, err)
		return
	}

	var effective pagination.Filter
	if scope != nil {
		effective = pagination.Filter{}
		if requested, ok := params.Filter.(pagination.Filter); ok {
			for k, v := range requested {
				effective[k] = v
			}
		}
		for k, v := range scope {
			effective[k] = v
		}
	}

	start := time.Now()
	page, err := paginator.Execute(r.Context(), effective, effective != nil)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.PaginationQueriesTotal.WithLabelValues(resource, status).Inc()
		s.metrics.PaginationQueryDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
		if err == nil {
			s.metrics.PaginationPageSize.WithLabelValues(resource).Observe(float64(page.Pagination.Amount))
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, page)
}

// parseUUIDField parses a UUID carried in a request body field.
func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID for %s: %q", field, raw)
	}
	return id, nil
}
