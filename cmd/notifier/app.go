package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-community-notifier/internal/application/dispatch"
	"github.com/go-community-notifier/internal/application/notification"
	"github.com/go-community-notifier/internal/application/preference"
	"github.com/go-community-notifier/internal/application/pushtoken"
	"github.com/go-community-notifier/internal/application/reminder"
	"github.com/go-community-notifier/internal/config"
	"github.com/go-community-notifier/internal/infrastructure/dynamo"
	natsinfra "github.com/go-community-notifier/internal/infrastructure/nats"
	"github.com/go-community-notifier/internal/infrastructure/push"
	redisinfra "github.com/go-community-notifier/internal/infrastructure/redis"
	"github.com/go-community-notifier/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// app is the wired object graph shared by serve and remind.
type app struct {
	notifications notification.Service
	pushTokens    pushtoken.Service
	dispatcher    *dispatch.Dispatcher
	scheduler     *reminder.Scheduler
	metrics       *metrics.Metrics

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, bootstrap bool) (*app, error) {
	a := &app{metrics: metrics.New(prometheus.DefaultRegisterer)}

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamodb client: %w", err)
	}
	if bootstrap {
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	}

	// Realtime inbox events (optional, graceful fallback).
	var publisher notification.Publisher
	if cfg.NATSURL != "" {
		p, err := natsinfra.NewPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			slog.Warn("NATS publisher not available", "err", err)
		} else {
			publisher = p
			a.closers = append(a.closers, p.Close)
		}
	}

	provider, err := push.New(ctx, cfg, slog.Default())
	if err != nil {
		slog.Warn("push provider not available, logging pushes instead", "provider", cfg.PushProvider, "err", err)
		provider = push.NewLogProvider(slog.Default())
	}

	var dedup reminder.DedupCache = reminder.NewMemoryDedup()
	if cfg.RedisURL != "" {
		d, err := redisinfra.NewDedup(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis dedup not available, using in-memory cache", "err", err)
		} else {
			dedup = d
			a.closers = append(a.closers, func() { _ = d.Close() })
		}
	}

	a.notifications = notification.NewService(
		dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications), publisher, slog.Default())
	a.pushTokens = pushtoken.NewService(dynamo.NewPushTokenRepo(dynamoClient, cfg.DynamoTables.PushTokens))
	gate := preference.NewGate(dynamo.NewPreferenceRepo(dynamoClient, cfg.DynamoTables.Preferences), cfg.PreferenceCacheTTL)

	a.dispatcher = dispatch.New(a.notifications, gate, a.pushTokens, provider, dispatch.Options{
		Concurrency: cfg.DispatchConcurrency,
		PushTimeout: cfg.PushTimeout,
		RateLimit:   cfg.PushRateLimit,
		Logger:      slog.Default(),
		Metrics:     a.metrics,
	})
	a.scheduler = reminder.NewScheduler(
		dynamo.NewEventRepo(dynamoClient, cfg.DynamoTables.Events, cfg.DynamoTables.EventRSVPs),
		a.dispatcher, dedup, reminder.Options{
			Interval: cfg.ReminderInterval,
			Window:   cfg.ReminderWindow,
			Logger:   slog.Default(),
			Metrics:  a.metrics,
		})
	return a, nil
}
