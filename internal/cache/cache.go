package cache

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"sync"
	"time"

	"QueryChat/internal/session"
)

// CachedRender represents a styled bubble ready for the viewport
type CachedRender struct {
	Output    string
	Timestamp time.Time
}

// GenerateCacheKey generates a cache key from a message and the width it is
// rendered at
func GenerateCacheKey(msg session.Message, width int) string {
	h := sha256.New()
	h.Write([]byte(msg.Sender.String()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(width)))
	h.Write([]byte{0})
	h.Write([]byte(msg.Text))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RenderCache memoises rendered bubbles. Messages never change once
// created, so entries are only invalidated by a width change producing a
// different key.
type RenderCache struct {
	entries sync.Map
}

// Get returns the cached output for key
func (c *RenderCache) Get(key string) (string, bool) {
	if val, ok := c.entries.Load(key); ok {
		return val.(CachedRender).Output, true
	}
	return "", false
}

// Put stores output under key
func (c *RenderCache) Put(key, output string) {
	c.entries.Store(key, CachedRender{
		Output:    output,
		Timestamp: time.Now(),
	})
}

// GetOrRender returns the cached output for msg at width, calling render on
// a miss
func (c *RenderCache) GetOrRender(msg session.Message, width int, render func() string) string {
	key := GenerateCacheKey(msg, width)
	if out, ok := c.Get(key); ok {
		return out
	}
	out := render()
	c.Put(key, out)
	return out
}
