package pagination

import (
	"context"
	"fmt"
)

// Paginator produces one page of results from a repository. A paginator is
// configured for a single request and must not be shared across requests.
type Paginator[T Item] struct {
	repo Repository[T]

	limit       int
	order       Order
	orderColumn string
	cursor      string
	relations   []string

	// requestFilter is whatever the request plumbing handed over; it is
	// only used when Execute is not given an explicit filter.
	requestFilter any
}

// New creates a paginator over repo with the product defaults: 24 rows per
// page, newest first by createdAt.
func New[T Item](repo Repository[T]) *Paginator[T] {
	return &Paginator[T]{
		repo:        repo,
		limit:       DefaultLimit,
		order:       OrderDesc,
		orderColumn: DefaultOrderColumn,
	}
}

// SetParams validates and applies one request's pagination options.
func (p *Paginator[T]) SetParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if params.Limit > 0 {
		p.limit = params.Limit
	}
	if params.Order != "" {
		p.order = params.Order
	}
	if params.OrderColumn != "" {
		p.orderColumn = params.OrderColumn
	}
	p.cursor = params.Cursor
	p.relations = params.Relations
	p.requestFilter = params.Filter
	return nil
}

// Execute runs the page query and shapes the response. When filter is
// non-nil and useFilter is true it overrides the request filter; otherwise
// the filter captured by SetParams applies. The read is the only side
// effect.
func (p *Paginator[T]) Execute(ctx context.Context, filter Filter, useFilter bool) (*Page[T], error) {
	effective, err := p.effectiveFilter(filter, useFilter)
	if err != nil {
		return nil, err
	}

	var keyset *Keyset
	if p.cursor != "" {
		cur, err := Decode(p.cursor)
		if err != nil {
			return nil, err
		}
		keyset, err = cur.Keyset()
		if err != nil {
			return nil, err
		}
	}

	// One extra row detects whether a further page exists without a
	// separate count query.
	rows, err := p.repo.Find(ctx, Query{
		Filter:      effective,
		Keyset:      keyset,
		OrderColumn: p.orderColumn,
		Order:       p.order,
		Limit:       p.limit + 1,
		Relations:   p.relations,
	})
	if err != nil {
		return nil, err
	}

	return p.assemble(rows)
}

// effectiveFilter resolves which predicate the query runs under. A raw
// string is never forwarded to the repository: query strings must be parsed
// into structured predicates before they get anywhere near SQL.
func (p *Paginator[T]) effectiveFilter(filter Filter, useFilter bool) (Filter, error) {
	if filter != nil && useFilter {
		return filter, nil
	}
	switch f := p.requestFilter.(type) {
	case nil:
		return Filter{}, nil
	case Filter:
		return f, nil
	case map[string]any:
		return Filter(f), nil
	case string:
		return nil, fmt.Errorf("%w: filter must be structured, got raw string", ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unsupported filter type %T", ErrValidation, p.requestFilter)
	}
}

func (p *Paginator[T]) assemble(rows []T) (*Page[T], error) {
	meta := Meta{
		IsLastPage: len(rows) <= p.limit,
		StartsAt:   p.cursor,
	}

	// The overscan row is excluded from the page and becomes the next
	// cursor, so the cursor points exactly at the first row of the
	// following page.
	if !meta.IsLastPage && len(rows) > 0 {
		overflow := rows[len(rows)-1]
		rows = rows[:len(rows)-1]

		next, err := Encode(overflow, p.orderColumn)
		if err != nil {
			return nil, err
		}
		meta.Next = next

		endsAt, err := Encode(rows[len(rows)-1], p.orderColumn)
		if err != nil {
			return nil, err
		}
		meta.EndsAt = endsAt
	}
	meta.Amount = len(rows)

	if rows == nil {
		rows = []T{}
	}
	return &Page[T]{Data: rows, Pagination: meta}, nil
}
