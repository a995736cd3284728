// Package preference answers whether a user accepts push notifications for a category.
package preference

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-community-notifier/internal/domain"
)

const DefaultCacheTTL = time.Minute

type preferenceStore interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
}

type cacheEntry struct {
	prefs   *domain.NotificationPreferences
	expires time.Time
}

// Gate is a read-only lookup over stored preferences with a short in-process memo.
// A zero ttl disables the memo.
type Gate struct {
	store preferenceStore
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	cache     map[string]cacheEntry
	lastSweep time.Time
}

func NewGate(store preferenceStore, ttl time.Duration) *Gate {
	return &Gate{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
}

// IsPushAllowed reports whether userID accepts push for category. A user with no stored
// preferences accepts everything. Store failures are returned to the caller.
func (g *Gate) IsPushAllowed(ctx context.Context, userID string, category domain.Category) (bool, error) {
	prefs, err := g.lookup(ctx, userID)
	if err != nil {
		return false, err
	}
	return prefs.Allows(category), nil
}

// Invalidate drops the memoised preferences for userID.
func (g *Gate) Invalidate(userID string) {
	g.mu.Lock()
	delete(g.cache, userID)
	g.mu.Unlock()
}

func (g *Gate) lookup(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	now := g.now()
	if g.ttl > 0 {
		g.mu.Lock()
		e, ok := g.cache[userID]
		g.mu.Unlock()
		if ok && now.Before(e.expires) {
			return e.prefs, nil
		}
		if ok {
			g.mu.Lock()
			delete(g.cache, userID)
			g.mu.Unlock()
		}
	}

	prefs, err := g.store.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		prefs, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	if g.ttl > 0 {
		g.mu.Lock()
		g.sweep(now)
		g.cache[userID] = cacheEntry{prefs: prefs, expires: now.Add(g.ttl)}
		g.mu.Unlock()
	}
	return prefs, nil
}

// sweep drops expired entries, at most once per ttl. Callers hold g.mu.
func (g *Gate) sweep(now time.Time) {
	if now.Sub(g.lastSweep) < g.ttl {
		return
	}
	for id, e := range g.cache {
		if !now.Before(e.expires) {
			delete(g.cache, id)
		}
	}
	g.lastSweep = now
}
