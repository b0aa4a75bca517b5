package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the page size used when the client does not ask for one.
	DefaultLimit = 24
	// MaxLimit caps the page size a client may request.
	MaxLimit = 100
	// DefaultOrderColumn is the sort column used when none is configured.
	DefaultOrderColumn = "createdAt"
)

// ErrValidation marks client errors: bad parameters, malformed cursors and
// unstructured filters. Match with errors.Is.
var ErrValidation = errors.New("invalid pagination request")

// Order is the sort direction of a page.
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// Filter is a structured equality predicate: filter key -> required value.
// Keys are logical column names and are whitelisted by the repository before
// they reach SQL.
type Filter map[string]any

// Keyset is the "at or past this position" predicate decoded from a
// cursor. Rows compare on (Column, id) in the page's sort order; the row
// the cursor names is included, since a next cursor points at the first
// row of the following page.
type Keyset struct {
	Column string
	Value  any
	ID     string
}

// Query is the single read the paginator issues against a repository.
type Query struct {
	Filter      Filter
	Keyset      *Keyset
	OrderColumn string
	Order       Order
	Limit       int
	Relations   []string
}

// Item is a row the paginator can walk over.
type Item interface {
	// CursorID returns the row's stable unique identifier, used as the
	// sort tiebreak and embedded in cursors.
	CursorID() string
	// CursorValue returns the value of the named sort column, or false
	// when the row has no such column.
	CursorValue(column string) (any, bool)
}

// Repository is the storage collaborator the paginator reads from.
// Find must return rows ordered by (Query.OrderColumn, id) in Query.Order
// and honor the keyset predicate when present.
type Repository[T Item] interface {
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, f Filter) (int64, error)
}

// Params carries the pagination options parsed from one request.
// Filter is deliberately untyped: request plumbing may hand over anything,
// and Execute rejects whatever is not a structured predicate.
type Params struct {
	Limit       int
	Order       Order
	OrderColumn string
	Cursor      string
	Relations   []string
	Filter      any
}

// reserved query keys that never become filter predicates.
var reservedKeys = map[string]bool{
	"limit":     true,
	"order":     true,
	"cursor":    true,
	"relations": true,
}

// ParamsFromQuery extracts pagination options from a request query string.
// Unrecognized keys become the request filter, one equality predicate per
// key. Invalid values surface later through Params.Validate.
func ParamsFromQuery(values url.Values) Params {
	p := Params{
		Cursor: values.Get("cursor"),
	}
	if raw := values.Get("limit"); raw != "" {
		// Non-numeric limits become -1 so Validate rejects them.
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = -1
		}
		p.Limit = n
	}
	if raw := values.Get("order"); raw != "" {
		p.Order = Order(strings.ToUpper(raw))
	}
	if raw := values.Get("relations"); raw != "" {
		p.Relations = strings.Split(raw, ",")
	}

	filter := Filter{}
	for key := range values {
		if reservedKeys[key] {
			continue
		}
		filter[key] = values.Get(key)
	}
	if len(filter) > 0 {
		p.Filter = filter
	}
	return p
}

// ParamsFromRequest parses the request's raw query string. Cursor tokens
// contain literal semicolons and must arrive percent-encoded; a query
// string that fails to parse (for example a bare ";") is rejected here
// rather than silently dropped, which would restart the client at page
// one.
func ParamsFromRequest(r *http.Request) (Params, error) {
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return Params{}, fmt.Errorf("%w: malformed query string: %v", ErrValidation, err)
	}
	return ParamsFromQuery(values), nil
}

// Validate checks the schema constraints on the request parameters.
func (p Params) Validate() error {
	if p.Limit < 0 || p.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxLimit)
	}
	switch p.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return fmt.Errorf("%w: order must be ASC or DESC", ErrValidation)
	}
	return nil
}

// Meta describes one page's position within the full result set.
// Field names are part of the response contract.
type Meta struct {
	IsLastPage bool   `json:"isLastPage"`
	Next       string `json:"next,omitempty"`
	EndsAt     string `json:"endsAt,omitempty"`
	Amount     int    `json:"amount"`
	StartsAt   string `json:"startsAt,omitempty"`
}

// Page is one page of results plus its cursor metadata.
type Page[T Item] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}
