// Package redis holds the Redis-backed reminder dedup cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-community-notifier/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "reminder:"

	valueReserved = "reserved"
	valueSent     = "sent"
)

// reservationTTL bounds how long a crashed cycle can hold a reservation.
const reservationTTL = 15 * time.Minute

// Dedup keeps reminder entries in Redis so they survive restarts. A reservation is a SETNX
// with a short TTL; commit pins the entry until the event starts, after which Redis expires it.
type Dedup struct {
	client *redis.Client
}

// NewDedup connects to redisURL and verifies the connection.
func NewDedup(ctx context.Context, redisURL string) (*Dedup, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Dedup{client: client}, nil
}

// NewDedupWithClient wraps an existing client.
func NewDedupWithClient(client *redis.Client) *Dedup {
	return &Dedup{client: client}
}

func (d *Dedup) Reserve(ctx context.Context, key domain.ReminderKey, _ time.Time) (bool, error) {
	ok, err := d.client.SetNX(ctx, keyPrefix+key.String(), valueReserved, reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}
	return ok, nil
}

func (d *Dedup) Commit(ctx context.Context, key domain.ReminderKey, startsAt time.Time) error {
	k := keyPrefix + key.String()
	_, err := d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, valueSent, 0)
		pipe.ExpireAt(ctx, k, startsAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (d *Dedup) Release(ctx context.Context, key domain.ReminderKey) error {
	if err := d.client.Del(ctx, keyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// EvictStarted is a no-op: committed keys expire at the event start on their own.
func (d *Dedup) EvictStarted(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (d *Dedup) Close() error {
	return d.client.Close()
}
