package cache

import (
	"context"
	"fmt"
	"log"
	"time"
)

// scopeGen is this process's view of one scope's version. remote mirrors the
// Redis counter; local is non-zero while a bump has not reached Redis.
type scopeGen struct {
	remote  int64
	local   int64
	pending bool
	fetched time.Time
	bumped  time.Time
}

func (g *scopeGen) String() string {
	return fmt.Sprintf("%d.%d", g.remote, g.local)
}

// scope returns the entry for name, creating it. Callers hold genMu.
func (c *MultiLevelCache) scope(name string) *scopeGen {
	g, ok := c.gens[name]
	if !ok {
		g = &scopeGen{}
		c.gens[name] = g
	}
	return g
}

// Generation returns the current version of scope for building cache keys.
// Once Bump(scope) returns, this process never reads keys built from an
// older version; other processes stop within the L1 TTL.
func (c *MultiLevelCache) Generation(ctx context.Context, scope string) (string, error) {
	c.genMu.Lock()
	g := c.scope(scope)
	if c.l2 == nil || (!g.fetched.IsZero() && c.now().Sub(g.fetched) < c.l1TTL) {
		v := g.String()
		c.genMu.Unlock()
		return v, nil
	}
	c.genMu.Unlock()

	var remote int64
	err := c.remote(func() error {
		var err error
		remote, err = c.l2.Generation(ctx, scope)
		return err
	})
	if err != nil {
		return "", err
	}

	c.genMu.Lock()
	defer c.genMu.Unlock()
	g = c.scope(scope)
	if remote > g.remote {
		g.remote = remote
	}
	g.fetched = c.now()
	return g.String(), nil
}

// Bump retires every key built from the current version of scope. Call it
// after the store write it covers. When Redis cannot take the bump it is
// applied locally and retried by Sweep; the error is returned for logging.
func (c *MultiLevelCache) Bump(ctx context.Context, scope string) error {
	c.metrics.invalidations.Add(1)
	return c.bump(ctx, scope)
}

func (c *MultiLevelCache) bump(ctx context.Context, scope string) error {
	var next int64
	err := c.remote(func() error {
		var err error
		next, err = c.l2.Bump(ctx, scope)
		return err
	})

	c.genMu.Lock()
	defer c.genMu.Unlock()
	g := c.scope(scope)
	g.bumped = c.now()

	if c.l2 == nil || err != nil {
		// genSeq never repeats, so a pruned and recreated scope cannot land
		// on a local version an old key was built from.
		c.genSeq++
		g.local = c.genSeq
		g.pending = c.l2 != nil
		return err
	}

	// The counter moved past every version read before this call, pending
	// local bumps included.
	if next > g.remote {
		g.remote = next
	}
	g.local = 0
	g.pending = false
	g.fetched = g.bumped
	return nil
}

func (c *MultiLevelCache) publishPending(ctx context.Context) {
	if c.l2 == nil {
		return
	}

	c.genMu.Lock()
	var scopes []string
	for name, g := range c.gens {
		if g.pending {
			scopes = append(scopes, name)
		}
	}
	c.genMu.Unlock()

	for _, name := range scopes {
		if err := c.bump(ctx, name); err != nil {
			log.Printf("cache: generation %s still unpublished: %v", name, err)
			return
		}
	}
}

// pruneGenerations drops scopes untouched for an L1 TTL. Pending scopes stay
// until Redis has seen their bump.
func (c *MultiLevelCache) pruneGenerations() int {
	c.genMu.Lock()
	defer c.genMu.Unlock()

	now := c.now()
	removed := 0
	for name, g := range c.gens {
		if g.pending {
			continue
		}
		last := g.bumped
		if g.fetched.After(last) {
			last = g.fetched
		}
		if now.Sub(last) >= c.l1TTL {
			delete(c.gens, name)
			removed++
		}
	}
	return removed
}
