package upnp

import (
	"context"
	"sync"
)

// cellState is the resolution state of a lazy cell
type cellState int

const (
	unresolved cellState = iota
	resolved
)

// lazy holds a value computed on first use. The unresolved -> resolved
// transition happens at most once; a failed resolution leaves the cell
// unresolved so the next call tries again. Concurrent callers are
// serialized on the mutex, so a value is never fetched twice.
type lazy[T any] struct {
	mu    sync.Mutex
	state cellState
	value T
}

// get returns the cached value or runs resolve to produce it
func (c *lazy[T]) get(ctx context.Context, resolve func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == resolved {
		return c.value, nil
	}

	v, err := resolve(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.value = v
	c.state = resolved
	return v, nil
}

// set stores v unless the cell is already resolved. It reports whether v was stored.
func (c *lazy[T]) set(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == resolved {
		return false
	}
	c.value = v
	c.state = resolved
	return true
}

// peek returns the value without resolving
func (c *lazy[T]) peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.state == resolved
}
