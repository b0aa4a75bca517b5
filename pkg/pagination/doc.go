// Package pagination implements keyset (cursor) pagination for the Memberbase API.
//
// # Overview
//
// Every list endpoint in the API returns one page of results plus an opaque
// cursor that resumes the walk exactly where the previous page stopped.
// Cursors encode the sort position of a row (sort-column value + id tiebreak)
// instead of an offset, so pages stay stable while rows are inserted
// concurrently ahead of the cursor.
//
// # Cursor Format
//
// A cursor is a single token of three or four semicolon-delimited segments:
//
//	<id>;<columnName>;<columnValue>[;date]
//
// For example, sorting by createdAt:
//
//	8a4ba6e0-6dd9-4207-b179-6d922555d38e;createdAt;1567457902579;date
//
// When the column name ends with "At" the value is a timestamp in Unix
// milliseconds; otherwise the value compares as a raw string. The format is
// part of the public API contract and must not change between releases.
//
// # Walking Pages
//
//	p := pagination.New(companyRepo)
//	if err := p.SetParams(pagination.ParamsFromQuery(r.URL.Query())); err != nil {
//		// 400: limit/order/cursor failed validation
//	}
//	page, err := p.Execute(ctx, pagination.Filter{"ownerId": userID}, true)
//
// The repository is asked for limit+1 rows; the extra row, when present, is
// popped from the page and becomes the "next" cursor, so the cursor points at
// the first row of the following page.
//
// # Known Limitation
//
// A cursor is only meaningful under the filter and sort order it was issued
// for. Reusing a token with a different filter yields undefined page
// boundaries; callers that change filters must restart from the first page.
//
// # Related Packages
//
//   - pkg/companies, pkg/locations, pkg/subscriptions, pkg/rbac: repositories
//     that the paginator walks
//   - pkg/httputil: maps validation failures to 400 responses
package pagination
