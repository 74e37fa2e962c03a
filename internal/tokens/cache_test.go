package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_ValidateAndRateLimit(t *testing.T) {
	c := NewCache()
	assert.False(t, c.Ready())
	assert.ErrorIs(t, c.Validate("a"), ErrStoreNotReady)

	c.Replace(map[string]Entry{"a": {RateLimit: 5}, "b": {RateLimit: 10}})

	assert.True(t, c.Ready())
	assert.NoError(t, c.Validate("a"))
	assert.Equal(t, 5, c.RateLimit("a"))
	assert.Equal(t, 10, c.RateLimit("b"))
	assert.ErrorIs(t, c.Validate("c"), ErrInvalidAPIKey)
	assert.Equal(t, 0, c.RateLimit("c"))
}

func TestCache_ReplaceSwapsWholeSet(t *testing.T) {
	c := NewCache()
	c.Replace(map[string]Entry{"a": {RateLimit: 5}, "b": {RateLimit: 10}})
	c.Replace(map[string]Entry{"a": {RateLimit: 7}, "c": {RateLimit: 12}})

	assert.Equal(t, 7, c.RateLimit("a"))
	assert.ErrorIs(t, c.Validate("b"), ErrInvalidAPIKey)
	assert.Equal(t, 12, c.RateLimit("c"))
	assert.Equal(t, 2, c.Len())
}

func TestCache_ReplaceCopiesInput(t *testing.T) {
	c := NewCache()
	in := map[string]Entry{"a": {RateLimit: 1}}
	c.Replace(in)
	in["a"] = Entry{RateLimit: 99}

	assert.Equal(t, 1, c.RateLimit("a"))
}

func TestCache_EmptySetIsReady(t *testing.T) {
	c := NewCache()
	c.Replace(map[string]Entry{})
	assert.True(t, c.Ready())
	assert.ErrorIs(t, c.Validate("x"), ErrInvalidAPIKey)
}
