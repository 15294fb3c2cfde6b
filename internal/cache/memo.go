// internal/cache/memo.go
//
// TTL memoisation for read-heavy aggregates (leaderboard stats, category
// counts).  Backed by patrickmn/go-cache; concurrent loads of the same key
// are collapsed with singleflight so an expiry never fans out into N
// identical queries.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Memo is safe for concurrent use.
type Memo struct {
	c  *gocache.Cache
	sf singleflight.Group
}

// New returns a Memo whose entries live for ttl.  Expired entries are
// purged every 2×ttl.
func New(ttl time.Duration) *Memo {
	return &Memo{c: gocache.New(ttl, 2*ttl)}
}

// GetOrLoad returns the cached value or calls load once per key.  Errors
// are not cached.  The shared load runs detached from any one caller's
// cancellation, so load must bound itself; a caller whose ctx ends first
// gets ctx.Err() while the load carries on for the others.
func GetOrLoad[T any](ctx context.Context, m *Memo, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := m.c.Get(key); ok {
		return v.(T), nil
	}
	detached := context.WithoutCancel(ctx)
	ch := m.sf.DoChan(key, func() (any, error) {
		if v, ok := m.c.Get(key); ok {
			return v, nil
		}
		out, err := load(detached)
		if err != nil {
			return nil, err
		}
		m.c.SetDefault(key, out)
		return out, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
