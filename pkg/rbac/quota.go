package rbac

import (
	"errors"
	"fmt"
)

// QuotaExceededError reports a cardinality cap being hit: the domain already
// holds the maximum number of resources of this kind. Distinct from an
// authorization denial so callers can phrase the refusal differently.
type QuotaExceededError struct {
	Resource string
	Current  int64
	Limit    int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (%d/%d)", e.Resource, e.Current, e.Limit)
}

// IsQuotaExceeded checks if an error is a quota exceeded error.
func IsQuotaExceeded(err error) bool {
	var q *QuotaExceededError
	return errors.As(err, &q)
}

// CheckQuota is the predicate behind every quota guard: adding one more
// resource of this kind is allowed iff the current count is below the
// configured maximum. A non-positive maximum means unlimited.
func CheckQuota(resource string, current, limit int64) error {
	if limit > 0 && current >= limit {
		return &QuotaExceededError{Resource: resource, Current: current, Limit: limit}
	}
	return nil
}
