package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckQuota(t *testing.T) {
	assert.NoError(t, CheckQuota("companies", 0, 5))
	assert.NoError(t, CheckQuota("companies", 4, 5))

	err := CheckQuota("companies", 5, 5)
	require.Error(t, err)
	assert.True(t, IsQuotaExceeded(err))
	assert.Equal(t, "quota exceeded for companies (5/5)", err.Error())

	// Already over the cap still refuses.
	assert.True(t, IsQuotaExceeded(CheckQuota("locations", 10, 5)))

	// Non-positive limit means unlimited.
	assert.NoError(t, CheckQuota("companies", 1000, 0))
	assert.NoError(t, CheckQuota("companies", 1000, -1))
}

func TestIsQuotaExceeded(t *testing.T) {
	assert.False(t, IsQuotaExceeded(nil))
	assert.False(t, IsQuotaExceeded(errors.New("other")))
	assert.False(t, IsQuotaExceeded(ErrForbidden))
}
