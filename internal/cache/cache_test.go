package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := New()
	c.Set("taxonomy:development/tools/git", "value", time.Minute)
	v, ok := c.Get("taxonomy:development/tools/git")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestCache_Expiry(t *testing.T) {
	c := New()
	c.Set("k", "v", -time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_InvalidateGlob(t *testing.T) {
	c := New()
	c.Set("taxonomy:development/tools/git", "a", time.Minute)
	c.Set("taxonomy:development/tools/bash", "b", time.Minute)
	c.Set("user:42", "c", time.Minute)

	c.Invalidate("taxonomy:*")

	_, ok1 := c.Get("taxonomy:development/tools/git")
	_, ok2 := c.Get("taxonomy:development/tools/bash")
	_, ok3 := c.Get("user:42")
	assert.False(t, ok1)
	assert.False(t, ok2)
	assert.True(t, ok3)
}
