// Package locations implements company locations: physical sites with
// contact details, coordinates and working hours, scoped to one company.
package locations

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a location lookup matches nothing.
var ErrNotFound = errors.New("location not found")

// WorkingHours maps weekday names to opening ranges ("09:00-17:00").
// Stored as JSONB; days absent from the map are closed.
type WorkingHours map[string]string

// Location is a physical site belonging to a company.
type Location struct {
	ID           uuid.UUID    `json:"id"`
	CompanyID    uuid.UUID    `json:"companyId"`
	Name         string       `json:"name"`
	Address      string       `json:"address,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Email        string       `json:"email,omitempty"`
	Latitude     *float64     `json:"latitude,omitempty"`
	Longitude    *float64     `json:"longitude,omitempty"`
	WorkingHours WorkingHours `json:"workingHours"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// CursorID implements pagination.Item.
func (l *Location) CursorID() string { return l.ID.String() }

// CursorValue implements pagination.Item.
func (l *Location) CursorValue(column string) (any, bool) {
	switch column {
	case "createdAt":
		return l.CreatedAt, true
	case "updatedAt":
		return l.UpdatedAt, true
	case "name":
		return l.Name, true
	case "companyId":
		return l.CompanyID.String(), true
	}
	return nil, false
}

// CreateRequest carries the fields for a new location.
type CreateRequest struct {
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	Latitude     *float64     `json:"latitude"`
	Longitude    *float64     `json:"longitude"`
	WorkingHours WorkingHours `json:"workingHours"`
}

// Validate checks the request.
func (r *CreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("location name is required")
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return errors.New("latitude and longitude must be set together")
	}
	if r.Latitude != nil {
		if *r.Latitude < -90 || *r.Latitude > 90 {
			return errors.New("latitude out of range")
		}
		if *r.Longitude < -180 || *r.Longitude > 180 {
			return errors.New("longitude out of range")
		}
	}
	return nil
}

// UpdateRequest carries partial updates; nil fields stay untouched.
type UpdateRequest struct {
	Name         *string       `json:"name"`
	Address      *string       `json:"address"`
	Phone        *string       `json:"phone"`
	Email        *string       `json:"email"`
	Latitude     *float64      `json:"latitude"`
	Longitude    *float64      `json:"longitude"`
	WorkingHours *WorkingHours `json:"workingHours"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("location name cannot be empty")
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		return errors.New("latitude out of range")
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		return errors.New("longitude out of range")
	}
	return nil
}
