// Package companies implements the company (tenant) domain: CRUD with
// owner quota enforcement, keyset-paginated listings, and the owner role
// grant that ties a new company to its creator.
package companies

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when a company lookup matches nothing.
var ErrNotFound = errors.New("company not found")

// ErrSlugTaken is returned when a company slug is already in use.
var ErrSlugTaken = errors.New("company slug already taken")

// Status reflects a company's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Company is a tenant. Its id doubles as the role domain scoping every
// permission check under it.
type Company struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Status      Status    `json:"status"`
	LogoKey     string    `json:"logoKey,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CursorID implements pagination.Item.
func (c *Company) CursorID() string { return c.ID.String() }

// CursorValue implements pagination.Item.
func (c *Company) CursorValue(column string) (any, bool) {
	switch column {
	case "createdAt":
		return c.CreatedAt, true
	case "updatedAt":
		return c.UpdatedAt, true
	case "name":
		return c.Name, true
	case "slug":
		return c.Slug, true
	case "ownerId":
		return c.OwnerID.String(), true
	case "status":
		return string(c.Status), true
	}
	return nil, false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CreateRequest carries the fields for a new company.
type CreateRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// Validate checks the request, deriving the slug from the name when absent.
func (r *CreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("company name is required")
	}
	if r.Slug == "" {
		r.Slug = Slugify(r.Name)
	}
	if !slugPattern.MatchString(r.Slug) {
		return fmt.Errorf("invalid slug %q", r.Slug)
	}
	return nil
}

// UpdateRequest carries partial updates; nil fields stay untouched.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Status      *Status `json:"status"`
}

// Validate checks the request.
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("company name cannot be empty")
	}
	if r.Status != nil && *r.Status != StatusActive && *r.Status != StatusSuspended {
		return fmt.Errorf("invalid status %q", *r.Status)
	}
	return nil
}

// Slugify lowercases a name, folds accented letters to their ASCII base
// and collapses everything else non-alphanumeric into single hyphens.
func Slugify(name string) string {
	folded, _, err := transform.String(slugFolder, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// slugFolder strips combining marks, so "è" decomposes to "e" plus a mark
// and comes out as "e".
var slugFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
