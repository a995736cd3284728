package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-community-notifier/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDedup_InvalidURL(t *testing.T) {
	_, err := NewDedup(context.Background(), "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid Redis URL")
}

func TestDedup_ReserveSurfacesConnectionErrors(t *testing.T) {
	d := NewDedupWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer d.Close()

	ok, err := d.Reserve(context.Background(), domain.ReminderKey{EventID: "e1", UserID: "u1"}, time.Now())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "e1:u1")
}

func TestDedup_EvictStartedIsNoop(t *testing.T) {
	d := NewDedupWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	defer d.Close()

	n, err := d.EvictStarted(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

var startsAt = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

func newTestDedup(t *testing.T) (*Dedup, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	m.SetTime(startsAt.Add(-2 * time.Hour))
	d, err := NewDedup(context.Background(), "redis://"+m.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, m
}

func TestDedup_ReserveIsExclusive(t *testing.T) {
	d, m := newTestDedup(t)
	ctx := context.Background()
	key := domain.ReminderKey{EventID: "e1", UserID: "u1"}

	ok, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := m.Get("reminder:e1:u1")
	require.NoError(t, err)
	assert.Equal(t, "reserved", v)
	assert.Equal(t, reservationTTL, m.TTL("reminder:e1:u1"))
}

func TestDedup_CommitPinsUntilEventStart(t *testing.T) {
	d, m := newTestDedup(t)
	ctx := context.Background()
	key := domain.ReminderKey{EventID: "e1", UserID: "u1"}

	_, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	require.NoError(t, d.Commit(ctx, key, startsAt))

	v, err := m.Get("reminder:e1:u1")
	require.NoError(t, err)
	assert.Equal(t, "sent", v)
	assert.Equal(t, 2*time.Hour, m.TTL("reminder:e1:u1"))

	// Past the reservation TTL the committed key still blocks.
	m.FastForward(time.Hour)
	ok, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	assert.False(t, ok)

	m.FastForward(time.Hour + time.Second)
	assert.False(t, m.Exists("reminder:e1:u1"))
}

func TestDedup_ReleaseAllowsRetry(t *testing.T) {
	d, _ := newTestDedup(t)
	ctx := context.Background()
	key := domain.ReminderKey{EventID: "e1", UserID: "u1"}

	_, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	require.NoError(t, d.Release(ctx, key))

	ok, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDedup_CommittedKeySurvivesRestart(t *testing.T) {
	d, m := newTestDedup(t)
	ctx := context.Background()
	key := domain.ReminderKey{EventID: "e1", UserID: "u1"}

	_, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	require.NoError(t, d.Commit(ctx, key, startsAt))
	require.NoError(t, d.Close())

	restarted := NewDedupWithClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer restarted.Close()

	ok, err := restarted.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDedup_AbandonedReservationExpires(t *testing.T) {
	d, m := newTestDedup(t)
	ctx := context.Background()
	key := domain.ReminderKey{EventID: "e1", UserID: "u1"}

	_, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	m.FastForward(reservationTTL + time.Second)

	ok, err := d.Reserve(ctx, key, startsAt)
	require.NoError(t, err)
	assert.True(t, ok)
}
