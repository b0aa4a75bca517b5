// Package plans implements the pricing plan a company holds with the
// platform. A company has at most one active plan at a time; starting a
// new plan cancels whatever was running, and an extension queues up
// behind the current plan instead of replacing it.
package plans

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a company has no active pricing plan.
var ErrNotFound = errors.New("pricing plan not found")

// Plan is one billing period a company has purchased. IsActive is the
// cancellation flag; whether the period is current or queued follows from
// StartsAt and EndsAt.
type Plan struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"companyId"`
	CreatedBy uuid.UUID `json:"createdBy"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	IsActive  bool      `json:"isActive"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CurrentAt reports whether the plan covers the instant.
func (p *Plan) CurrentAt(at time.Time) bool {
	return p.IsActive && !at.Before(p.StartsAt) && at.Before(p.EndsAt)
}

// StartRequest carries the fields for a fresh plan.
type StartRequest struct {
	Name     string    `json:"name"`
	Price    int64     `json:"price"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// Validate checks the request.
func (r *StartRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("plan name is required")
	}
	if r.Price < 0 {
		return errors.New("price cannot be negative")
	}
	if r.StartsAt.IsZero() {
		return errors.New("startsAt is required")
	}
	if !r.EndsAt.After(r.StartsAt) {
		return errors.New("endsAt must be after startsAt")
	}
	return nil
}

// ExtendRequest queues a follow-up plan behind the active one. It has no
// start date: the extension begins when the current plan ends.
type ExtendRequest struct {
	Name   string    `json:"name"`
	Price  int64     `json:"price"`
	EndsAt time.Time `json:"endsAt"`
}

// Validate checks the request. The endsAt ordering against the current
// plan is checked by the service once that plan is known.
func (r *ExtendRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("plan name is required")
	}
	if r.Price < 0 {
		return errors.New("price cannot be negative")
	}
	if r.EndsAt.IsZero() {
		return errors.New("endsAt is required")
	}
	return nil
}
