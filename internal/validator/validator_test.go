package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	v := New()
	assert.True(t, v.Valid())

	v.Check(false, "title", "must be provided")
	v.Check(false, "title", "second message is ignored")
	v.Check(true, "year", "never recorded")

	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{"title": "must be provided"}, v.Errors)
}

func TestHelpers(t *testing.T) {
	assert.True(t, PermittedValue("movie", "movie", "series"))
	assert.False(t, PermittedValue("book", "movie", "series"))
	assert.True(t, Unique([]string{"a", "b"}))
	assert.False(t, Unique([]string{"a", "a"}))
	assert.True(t, Matches("2024-01-31", DateRX))
	assert.False(t, Matches("31/01/2024", DateRX))
}
