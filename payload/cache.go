package payload

import (
	"sync"
	"time"
)

// Cache is a single slot holding the most recently completed recording.
// Each Store overwrites the previous value; Load sees the latest write.
type Cache struct {
	mu       sync.RWMutex
	payload  Payload
	storedAt time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Store replaces the cached payload. Empty payloads are rejected and leave
// the current contents untouched.
func (c *Cache) Store(p Payload) error {
	if p.Empty() {
		return ErrEmptyPayload
	}
	c.mu.Lock()
	c.payload = p
	c.storedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// Load returns the cached payload, or false when nothing has been stored.
func (c *Cache) Load() (Payload, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.payload, !c.payload.Empty()
}

// StoredAt returns when the current payload was written.
func (c *Cache) StoredAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storedAt
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.payload = ""
	c.storedAt = time.Time{}
	c.mu.Unlock()
}
