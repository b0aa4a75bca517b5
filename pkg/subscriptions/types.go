// Package subscriptions implements memberships and vouchers sold by a
// company to its members, including the expiry sweep the janitor runs.
package subscriptions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a subscription lookup matches nothing.
var ErrNotFound = errors.New("subscription not found")

// Type distinguishes recurring memberships from one-off vouchers.
type Type string

const (
	TypeMembership Type = "membership"
	TypeVoucher    Type = "voucher"
)

// Subscription is a membership or voucher a user holds with a company.
// Price is in minor currency units. A nil ExpiresAt never lapses.
type Subscription struct {
	ID        uuid.UUID  `json:"id"`
	CompanyID uuid.UUID  `json:"companyId"`
	UserID    uuid.UUID  `json:"userId"`
	Type      Type       `json:"type"`
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	IsActive  bool       `json:"isActive"`
	StartsAt  time.Time  `json:"startsAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ActiveAt reports whether the subscription is usable at the instant.
func (s *Subscription) ActiveAt(at time.Time) bool {
	if !s.IsActive || at.Before(s.StartsAt) {
		return false
	}
	return s.ExpiresAt == nil || at.Before(*s.ExpiresAt)
}

// CursorID implements pagination.Item.
func (s *Subscription) CursorID() string { return s.ID.String() }

// CursorValue implements pagination.Item.
func (s *Subscription) CursorValue(column string) (any, bool) {
	switch column {
	case "createdAt":
		return s.CreatedAt, true
	case "updatedAt":
		return s.UpdatedAt, true
	case "startsAt":
		return s.StartsAt, true
	case "expiresAt":
		if s.ExpiresAt == nil {
			return nil, false
		}
		return *s.ExpiresAt, true
	case "name":
		return s.Name, true
	case "type":
		return string(s.Type), true
	case "companyId":
		return s.CompanyID.String(), true
	case "userId":
		return s.UserID.String(), true
	}
	return nil, false
}

// CreateRequest carries the fields for a new subscription.
type CreateRequest struct {
	UserID    uuid.UUID  `json:"userId"`
	Type      Type       `json:"type"`
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	StartsAt  time.Time  `json:"startsAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Validate checks the request.
func (r *CreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("subscription name is required")
	}
	if r.UserID == uuid.Nil {
		return errors.New("subscription user is required")
	}
	if r.Type != TypeMembership && r.Type != TypeVoucher {
		return fmt.Errorf("invalid subscription type %q", r.Type)
	}
	if r.Price < 0 {
		return errors.New("price cannot be negative")
	}
	if r.StartsAt.IsZero() {
		return errors.New("startsAt is required")
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(r.StartsAt) {
		return errors.New("expiresAt must be after startsAt")
	}
	return nil
}
