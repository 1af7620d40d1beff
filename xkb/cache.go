package xkb

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache interns compiled keymaps by layout digest so repeated binds of the
// same layout share one keymap. The cache holds its own reference on every
// entry; references handed out by Compile are owned by the caller.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Keymap
}

// NewCache returns an empty keymap cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Keymap)}
}

// Compile returns a keymap for the layout, compiling it on first use. The
// returned reference is owned by the caller and must be balanced with Unref.
func (c *Cache) Compile(l *Layout) (*Keymap, error) {
	canon, err := l.canonical()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canon)
	digest := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()
	if km, ok := c.entries[digest]; ok && !km.released.Load() {
		km.Ref()
		return km, nil
	}
	km, err := Compile(l)
	if err != nil {
		return nil, err
	}
	// One reference stays with the cache, one goes to the caller.
	km.Ref()
	c.entries[digest] = km
	return km, nil
}

// Len returns the number of cached keymaps.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close releases the cache's references. Keymaps still referenced elsewhere
// stay valid until their holders unref them.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for digest, km := range c.entries {
		km.Unref()
		delete(c.entries, digest)
	}
}
