// Package lockcache maintains a time-boxed snapshot of LFS lock ownership.
// Lock queries are far more frequent than lock changes, so a short TTL
// saves a remote round trip on almost every status refresh.
package lockcache

import (
	"context"
	"sync"
	"time"

	"github.com/skaphos/lockkeeper/internal/gitx"
)

// DefaultTTL is how long a lock snapshot stays valid without a refresh.
const DefaultTTL = 30 * time.Second

// Cache is a TTL-bounded view of `git lfs locks`. Construct one per
// provider session and pass it by handle; it is safe for concurrent use.
type Cache struct {
	runner gitx.Runner
	dir    string
	user   string
	ttl    time.Duration

	mu          sync.Mutex
	locks       map[string]string
	lastUpdated time.Time

	// now is overridable in tests.
	now func() time.Time
}

// New creates a lock cache for the given repo. user is the lock username
// attributed to --local listings that omit the owner column. A zero ttl
// selects DefaultTTL.
func New(runner gitx.Runner, dir, user string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		runner: runner,
		dir:    dir,
		user:   user,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GetAll returns path -> owner for every known lock. Within the TTL and
// without force, the in-memory snapshot is returned with no subprocess
// call. On a remote query failure it falls back to combining the cached
// view (locks held by others) with the local view (locks held by the
// current user); the asymmetry avoids reporting the same lock twice.
func (c *Cache) GetAll(ctx context.Context, force bool) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.locks != nil && c.now().Sub(c.lastUpdated) < c.ttl {
		return cloneLocks(c.locks), nil
	}

	out, err := c.runner.Run(ctx, c.dir, "lfs", "locks")
	if err == nil {
		c.locks = gitx.ParseLocks(out, c.user)
		c.lastUpdated = c.now()
		return cloneLocks(c.locks), nil
	}

	// The fallback view is served uncached: the snapshot and its timestamp
	// only ever reflect a successful remote query, so every call retries
	// the remote until it recovers.
	merged, fallbackErr := c.fallbackLocks(ctx)
	if fallbackErr != nil {
		return nil, err
	}
	return merged, nil
}

// fallbackLocks combines the last server-known lock list with the local
// lock list when the remote cannot be reached.
func (c *Cache) fallbackLocks(ctx context.Context) (map[string]string, error) {
	cachedOut, err := c.runner.Run(ctx, c.dir, "lfs", "locks", "--cached")
	if err != nil {
		return nil, err
	}
	localOut, err := c.runner.Run(ctx, c.dir, "lfs", "locks", "--local")
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string)
	for path, owner := range gitx.ParseLocks(cachedOut, c.user) {
		if owner != c.user {
			merged[path] = owner
		}
	}
	for path, owner := range gitx.ParseLocks(localOut, c.user) {
		if owner == c.user {
			merged[path] = owner
		}
	}
	return merged, nil
}

// Add records a freshly taken lock without waiting for the next refresh.
func (c *Cache) Add(path, owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks == nil {
		c.locks = make(map[string]string)
	}
	c.locks[path] = owner
}

// Remove drops a released lock from the snapshot.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, path)
}

// Invalidate forces the next GetAll to query the remote.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpdated = time.Time{}
}

// Owner returns the lock owner for a path from the current snapshot.
func (c *Cache) Owner(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.locks[path]
	return owner, ok
}

func cloneLocks(locks map[string]string) map[string]string {
	out := make(map[string]string, len(locks))
	for path, owner := range locks {
		out[path] = owner
	}
	return out
}
