package pagination

import (
	"fmt"
	"sort"
	"strings"
)

// SelectSQL renders the query as a PostgreSQL SELECT over table. columns
// whitelists the logical filter/order keys repositories accept and maps
// them to physical column names; a key outside the whitelist fails with
// ErrValidation.
//
// Null ordering policy: nulls sort after every value in both directions
// (NULLS LAST), so a cursor never lands inside a run of null sort values.
// Rows whose sort column is null trail the walk and are not addressable by
// keyset; repositories that sort on nullable columns accept that.
func (q Query) SelectSQL(table string, columns map[string]string, selectList string) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Deterministic argument order keeps queries reproducible in tests.
	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, ok := columns[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown filter column %q", ErrValidation, k)
		}
		where = append(where, fmt.Sprintf("%s = %s", col, bind(q.Filter[k])))
	}

	order := q.Order
	if order == "" {
		order = OrderDesc
	}
	orderKey := q.OrderColumn
	if orderKey == "" {
		orderKey = DefaultOrderColumn
	}
	orderCol, ok := columns[orderKey]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown order column %q", ErrValidation, orderKey)
	}
	idCol, ok := columns["id"]
	if !ok {
		return "", nil, fmt.Errorf("%w: table %s has no id column mapping", ErrValidation, table)
	}

	if q.Keyset != nil {
		ksCol, ok := columns[q.Keyset.Column]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown cursor column %q", ErrValidation, q.Keyset.Column)
		}
		// Inclusive: the cursor names the first row of this page, so the
		// row at the cursor position itself must be returned.
		cmp := "<="
		if order == OrderAsc {
			cmp = ">="
		}
		where = append(where, fmt.Sprintf("(%s, %s) %s (%s, %s)",
			ksCol, idCol, cmp, bind(q.Keyset.Value), bind(q.Keyset.ID)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectList, table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s %s NULLS LAST, %s %s", orderCol, order, idCol, order)
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args, nil
}

// CountSQL renders a COUNT(*) over the filter with the same whitelist rules
// as SelectSQL.
func CountSQL(f Filter, table string, columns map[string]string) (string, []any, error) {
	var (
		where []string
		args  []any
	)

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, ok := columns[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown filter column %q", ErrValidation, k)
		}
		args = append(args, f[k])
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	query := "SELECT COUNT(*) FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query, args, nil
}
