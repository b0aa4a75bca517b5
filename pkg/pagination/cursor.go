package pagination

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// delimiter separates cursor segments.
const delimiter = ";"

// ValueType tells how a cursor's column value compares against rows.
type ValueType string

const (
	// TypeRaw compares the value as an opaque string.
	TypeRaw ValueType = ""
	// TypeDate compares the value as a timestamp (Unix milliseconds).
	TypeDate ValueType = "date"
)

// Cursor is the decoded form of a pagination token.
type Cursor struct {
	ID     string
	Column string
	Value  string
	Type   ValueType
}

// InferType returns the value type implied by a column name. Timestamp
// columns follow the createdAt/updatedAt/expiresAt naming convention.
func InferType(column string) ValueType {
	if strings.HasSuffix(column, "At") {
		return TypeDate
	}
	return TypeRaw
}

// Encode builds an opaque cursor token pointing at item's position on
// column. Timestamps serialize as Unix milliseconds; the ";date" suffix is
// appended only for date columns, matching the tokens existing clients hold.
func Encode(item Item, column string) (string, error) {
	if column == "" {
		column = DefaultOrderColumn
	}
	raw, ok := item.CursorValue(column)
	if !ok {
		return "", fmt.Errorf("pagination: item %s has no sort column %q", item.CursorID(), column)
	}

	var value string
	switch v := raw.(type) {
	case time.Time:
		value = strconv.FormatInt(v.UnixMilli(), 10)
	case *time.Time:
		if v == nil {
			return "", fmt.Errorf("pagination: item %s has null sort column %q", item.CursorID(), column)
		}
		value = strconv.FormatInt(v.UnixMilli(), 10)
	case string:
		value = v
	case int:
		value = strconv.Itoa(v)
	case int64:
		value = strconv.FormatInt(v, 10)
	case float64:
		value = strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		value = v.String()
	default:
		value = fmt.Sprint(v)
	}

	segments := []string{item.CursorID(), column, value}
	if InferType(column) == TypeDate {
		segments = append(segments, string(TypeDate))
	}
	return strings.Join(segments, delimiter), nil
}

// Decode parses a cursor token. Both the three and the four segment forms
// are accepted; anything else fails with ErrValidation before any query
// runs.
func Decode(token string) (Cursor, error) {
	segments := strings.Split(token, delimiter)
	if len(segments) != 3 && len(segments) != 4 {
		return Cursor{}, fmt.Errorf("%w: malformed cursor %q", ErrValidation, token)
	}

	c := Cursor{
		ID:     segments[0],
		Column: segments[1],
		Value:  segments[2],
		Type:   InferType(segments[1]),
	}
	if c.ID == "" || c.Column == "" {
		return Cursor{}, fmt.Errorf("%w: malformed cursor %q", ErrValidation, token)
	}
	if len(segments) == 4 {
		if segments[3] != string(TypeDate) {
			return Cursor{}, fmt.Errorf("%w: unknown cursor value type %q", ErrValidation, segments[3])
		}
		c.Type = TypeDate
	}
	if c.Type == TypeDate {
		if _, err := c.Time(); err != nil {
			return Cursor{}, fmt.Errorf("%w: cursor timestamp %q does not parse", ErrValidation, c.Value)
		}
	}
	return c, nil
}

// Time parses a date-typed cursor value.
func (c Cursor) Time() (time.Time, error) {
	ms, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Keyset converts the cursor into the repository position predicate.
func (c Cursor) Keyset() (*Keyset, error) {
	value := any(c.Value)
	if c.Type == TypeDate {
		t, err := c.Time()
		if err != nil {
			return nil, fmt.Errorf("%w: cursor timestamp %q does not parse", ErrValidation, c.Value)
		}
		value = t
	}
	return &Keyset{Column: c.Column, Value: value, ID: c.ID}, nil
}
