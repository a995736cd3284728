// Package dispatch turns a notification trigger into in-app records and best-effort pushes.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-community-notifier/internal/domain"
	"github.com/go-community-notifier/internal/infrastructure/push"
	"github.com/go-community-notifier/internal/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultConcurrency = 16
	DefaultPushTimeout = 10 * time.Second
)

type recorder interface {
	Record(ctx context.Context, userID string, category domain.Category, payload domain.Payload) (*domain.Notification, error)
}

type pushGate interface {
	IsPushAllowed(ctx context.Context, userID string, category domain.Category) (bool, error)
}

type tokenRegistry interface {
	TokensFor(ctx context.Context, userID string) ([]domain.PushToken, error)
	RemoveInvalid(ctx context.Context, token string) error
	Touch(ctx context.Context, token string) error
}

// Options tunes fan-out. Zero values fall back to the defaults; RateLimit <= 0 disables the
// shared send limiter.
type Options struct {
	Concurrency int
	PushTimeout time.Duration
	RateLimit   int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

type Dispatcher struct {
	store    recorder
	gate     pushGate
	registry tokenRegistry
	provider push.Provider

	concurrency int
	pushTimeout time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func New(store recorder, gate pushGate, registry tokenRegistry, provider push.Provider, opts Options) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		gate:        gate,
		registry:    registry,
		provider:    provider,
		concurrency: opts.Concurrency,
		pushTimeout: opts.PushTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if d.concurrency <= 0 {
		d.concurrency = DefaultConcurrency
	}
	if d.pushTimeout <= 0 {
		d.pushTimeout = DefaultPushTimeout
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if opts.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}
	return d
}

type counters struct {
	created, failed, pushed, pushFailures, invalid atomic.Int64
}

// Dispatch records one notification per distinct recipient and pushes it to every token the
// recipient allows. It runs to completion even if ctx is cancelled. Only invalid arguments
// produce an error; per-recipient and per-token failures are counted in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, category domain.Category, recipients []string, payload domain.Payload) (domain.DispatchResult, error) {
	if !category.Valid() {
		return domain.DispatchResult{}, fmt.Errorf("unknown category %q: %w", category, domain.ErrBadRequest)
	}
	if payload.Type == "" {
		return domain.DispatchResult{}, fmt.Errorf("payload type is required: %w", domain.ErrBadRequest)
	}
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	users := uniqueRecipients(recipients)
	var c counters
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, userID := range users {
		g.Go(func() error {
			d.deliver(ctx, category, userID, payload, &c)
			return nil
		})
	}
	_ = g.Wait()

	d.metrics.ObserveDispatch(string(category), time.Since(start))
	result := domain.DispatchResult{
		Recipients:    len(users),
		Created:       int(c.created.Load()),
		Failed:        int(c.failed.Load()),
		Pushed:        int(c.pushed.Load()),
		PushFailures:  int(c.pushFailures.Load()),
		InvalidTokens: int(c.invalid.Load()),
	}
	d.logger.Debug("dispatch finished",
		"category", category,
		"recipients", result.Recipients,
		"created", result.Created,
		"pushed", result.Pushed,
		"failed", result.Failed)
	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, category domain.Category, userID string, payload domain.Payload, c *counters) {
	n, err := d.store.Record(ctx, userID, category, payload)
	if err != nil {
		c.failed.Add(1)
		d.metrics.NotificationFailed(string(category))
		d.logger.Error("record notification", "user_id", userID, "category", category, "err", err)
		return
	}
	c.created.Add(1)
	d.metrics.NotificationCreated(string(category))

	allowed, err := d.gate.IsPushAllowed(ctx, userID, category)
	if err != nil {
		d.logger.Warn("preference lookup failed, skipping push", "user_id", userID, "err", err)
		return
	}
	if !allowed {
		return
	}

	tokens, err := d.registry.TokensFor(ctx, userID)
	if err != nil {
		d.logger.Warn("token lookup failed, skipping push", "user_id", userID, "err", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, t := range tokens {
		g.Go(func() error {
			d.send(ctx, buildMessage(t, n), category, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) send(ctx context.Context, msg push.Message, category domain.Category, c *counters) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			c.pushFailures.Add(1)
			d.metrics.PushSend(string(category), metrics.PushFailed)
			return
		}
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	err := d.provider.Send(sendCtx, msg)
	cancel()

	switch {
	case err == nil:
		c.pushed.Add(1)
		d.metrics.PushSend(string(category), metrics.PushOK)
		if err := d.registry.Touch(ctx, msg.Token); err != nil {
			d.logger.Debug("touch push token", "err", err)
		}
	case errors.Is(err, push.ErrInvalidToken):
		c.invalid.Add(1)
		d.metrics.PushSend(string(category), metrics.PushInvalidToken)
		if err := d.registry.RemoveInvalid(ctx, msg.Token); err != nil {
			d.logger.Warn("remove invalid push token", "err", err)
		}
	default:
		c.pushFailures.Add(1)
		d.metrics.PushSend(string(category), metrics.PushFailed)
		d.logger.Warn("push send failed", "platform", msg.Platform, "notification_id", msg.Data["notification_id"], "err", err)
	}
}

func uniqueRecipients(recipients []string) []string {
	seen := make(map[string]struct{}, len(recipients))
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
