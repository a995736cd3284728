package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/go-community-notifier/internal/domain"
)

// DedupCache remembers which (event, attendee) pairs were already reminded.
// Reserve must be atomic: exactly one caller wins for a given key. A reservation is either
// committed once the reminder was recorded, or released so a later cycle can retry.
type DedupCache interface {
	Reserve(ctx context.Context, key domain.ReminderKey, startsAt time.Time) (bool, error)
	Commit(ctx context.Context, key domain.ReminderKey, startsAt time.Time) error
	Release(ctx context.Context, key domain.ReminderKey) error
	// EvictStarted drops entries whose event started before now and reports how many went.
	EvictStarted(ctx context.Context, now time.Time) (int, error)
}

type dedupEntry struct {
	startsAt   time.Time
	insertedAt time.Time
	committed  bool
}

// MemoryDedup is the in-process cache. Its contents are lost on restart, so an attendee can
// be reminded again if the process restarts inside the reminder window.
type MemoryDedup struct {
	mu      sync.Mutex
	entries map[domain.ReminderKey]dedupEntry
	now     func() time.Time
}

func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{
		entries: make(map[domain.ReminderKey]dedupEntry),
		now:     time.Now,
	}
}

func (m *MemoryDedup) Reserve(_ context.Context, key domain.ReminderKey, startsAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.entries[key] = dedupEntry{startsAt: startsAt, insertedAt: m.now()}
	return true, nil
}

func (m *MemoryDedup) Commit(_ context.Context, key domain.ReminderKey, startsAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[key]
	if e.insertedAt.IsZero() {
		e.insertedAt = m.now()
	}
	e.startsAt = startsAt
	e.committed = true
	m.entries[key] = e
	return nil
}

func (m *MemoryDedup) Release(_ context.Context, key domain.ReminderKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && !e.committed {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryDedup) EvictStarted(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if e.startsAt.Before(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len reports the number of live entries.
func (m *MemoryDedup) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
