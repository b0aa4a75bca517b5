package companies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-fitness", Slugify("Acme Fitness"))
	assert.Equal(t, "caffe-9-to-5", Slugify("  Caffè 9 to 5! "))
	assert.Equal(t, "sao-paulo-gym", Slugify("São Paulo Gym"))
	assert.Equal(t, "a-b", Slugify("A---B"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestCreateRequestValidate(t *testing.T) {
	req := &CreateRequest{Name: " Acme Fitness "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Acme Fitness", req.Name)
	assert.Equal(t, "acme-fitness", req.Slug)

	assert.Error(t, (&CreateRequest{}).Validate())
	assert.Error(t, (&CreateRequest{Name: "x", Slug: "Bad Slug"}).Validate())

	// Explicit valid slug is kept.
	req = &CreateRequest{Name: "Acme", Slug: "acme-gym"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "acme-gym", req.Slug)
}

func TestUpdateRequestValidate(t *testing.T) {
	empty := ""
	bad := Status("frozen")
	ok := StatusSuspended

	assert.Error(t, (&UpdateRequest{Name: &empty}).Validate())
	assert.Error(t, (&UpdateRequest{Status: &bad}).Validate())
	assert.NoError(t, (&UpdateRequest{Status: &ok}).Validate())
	assert.NoError(t, (&UpdateRequest{}).Validate())
}
