package draft

import (
	"sync"
	"time"

	"github.com/kastheco/discovery/log"
)

// DefaultDelay is the settle window before an edit is written.
const DefaultDelay = 500 * time.Millisecond

// Cache debounces draft writes for one bound scope. Edits reset the timer;
// only the last value inside the window reaches the store.
type Cache struct {
	store Store
	delay time.Duration

	mu      sync.Mutex
	scope   string
	pending string
	dirty   bool
	timer   *time.Timer
	// gen invalidates timers that fired but have not yet taken the lock.
	gen     uint64
	stopped bool
}

// NewCache returns a cache writing to store after delay of quiet.
func NewCache(store Store, delay time.Duration) *Cache {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Cache{store: store, delay: delay}
}

// Bind selects the scope subsequent edits belong to and returns its stored
// draft. Read failures are treated as no draft. Any pending write for the
// previous scope is flushed first.
func (c *Cache) Bind(scope string) string {
	c.Flush()

	c.mu.Lock()
	c.scope = scope
	c.mu.Unlock()

	content, err := c.store.Load(scope)
	if err != nil {
		log.WarningLog.Printf("ignoring unreadable draft: %v", err)
		return ""
	}
	return content
}

// Scope returns the bound scope, or "" if none.
func (c *Cache) Scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// Update records an edit and (re)starts the settle timer.
func (c *Cache) Update(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.scope == "" {
		return
	}
	c.pending = content
	c.dirty = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.onTimer(gen) })
}

func (c *Cache) onTimer(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.dirty {
		return
	}
	c.writeLocked()
}

// Clear drops any pending edit and deletes the stored draft immediately.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.pending = ""
	c.dirty = false
	if c.scope == "" {
		return
	}
	if err := c.store.Delete(c.scope); err != nil {
		log.WarningLog.Printf("clear draft: %v", err)
	}
}

// Flush writes a pending edit now instead of waiting for the timer.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	if c.dirty {
		c.writeLocked()
	}
}

// Stop flushes and disables the cache. Later edits are ignored.
func (c *Cache) Stop() {
	c.Flush()
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

func (c *Cache) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Cache) writeLocked() {
	c.dirty = false
	if c.scope == "" {
		return
	}
	if err := c.store.Save(c.scope, c.pending); err != nil {
		log.WarningLog.Printf("save draft: %v", err)
	}
}
