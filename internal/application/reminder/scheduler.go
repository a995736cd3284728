// Package reminder periodically reminds confirmed attendees of events starting soon.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-community-notifier/internal/domain"
	"github.com/go-community-notifier/internal/metrics"
)

const (
	DefaultInterval = time.Hour
	DefaultWindow   = 24 * time.Hour

	dedupTimeout = 5 * time.Second
)

var ErrAlreadyRunning = errors.New("reminder scheduler already running")

type EventSource interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Event, error)
	ConfirmedAttendees(ctx context.Context, eventID string) ([]string, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, category domain.Category, recipients []string, payload domain.Payload) (domain.DispatchResult, error)
}

// CycleReport summarises one scan.
type CycleReport struct {
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Skipped     bool      `json:"skipped"`
	Events      int       `json:"events"`
	Sent        int       `json:"sent"`
	AlreadySent int       `json:"already_sent"`
	Failed      int       `json:"failed"`
	Evicted     int       `json:"evicted"`
	Error       string    `json:"error,omitempty"`
}

type Options struct {
	Interval time.Duration
	Window   time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type Scheduler struct {
	events     EventSource
	dispatcher dispatcher
	dedup      DedupCache
	interval   time.Duration
	window     time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	// cycle is held for the duration of one RunCycle.
	cycle sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewScheduler(events EventSource, d dispatcher, dedup DedupCache, opts Options) *Scheduler {
	s := &Scheduler{
		events:     events,
		dispatcher: d,
		dedup:      dedup,
		interval:   opts.Interval,
		window:     opts.Window,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        time.Now,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.window <= 0 {
		s.window = DefaultWindow
	}
	if s.dedup == nil {
		s.dedup = NewMemoryDedup()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start runs a cycle immediately and then one per interval until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx, s.done)

	s.logger.Info("reminder scheduler started", "interval", s.interval, "window", s.window)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	s.logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one scan. If another cycle is in progress it returns at once with Skipped set.
func (s *Scheduler) RunCycle(ctx context.Context) (report CycleReport) {
	if !s.cycle.TryLock() {
		s.metrics.ReminderCycle(metrics.CycleSkipped)
		return CycleReport{StartedAt: s.now().UTC(), Skipped: true}
	}
	defer s.cycle.Unlock()

	start := s.now().UTC()
	report.StartedAt = start
	defer func() {
		if r := recover(); r != nil {
			report.Error = fmt.Sprintf("panic: %v", r)
			s.metrics.ReminderCycle(metrics.CyclePanicked)
			s.logger.Error("reminder cycle panicked", "panic", r)
		}
		report.DurationMS = s.now().Sub(start).Milliseconds()
	}()

	s.scan(ctx, start, &report)

	evicted, err := s.dedup.EvictStarted(ctx, start)
	if err != nil {
		s.logger.Warn("evict reminder entries", "err", err)
	}
	report.Evicted = evicted

	s.metrics.ReminderCycle(metrics.CycleCompleted)
	s.logger.Info("reminder cycle finished",
		"events", report.Events,
		"sent", report.Sent,
		"already_sent", report.AlreadySent,
		"failed", report.Failed,
		"evicted", report.Evicted)
	return report
}

func (s *Scheduler) scan(ctx context.Context, now time.Time, report *CycleReport) {
	events, err := s.events.ListUpcoming(ctx, now, now.Add(s.window))
	if err != nil {
		report.Error = err.Error()
		s.logger.Error("list upcoming events", "err", err)
		return
	}
	report.Events = len(events)

	for _, ev := range events {
		if ctx.Err() != nil {
			return
		}
		attendees, err := s.events.ConfirmedAttendees(ctx, ev.EventID)
		if err != nil {
			report.Failed++
			s.logger.Error("list confirmed attendees", "event_id", ev.EventID, "err", err)
			continue
		}
		for _, userID := range attendees {
			s.remind(ctx, ev, userID, report)
		}
	}
}

func (s *Scheduler) remind(ctx context.Context, ev domain.Event, userID string, report *CycleReport) {
	key := domain.ReminderKey{EventID: ev.EventID, UserID: userID}
	ok, err := s.dedup.Reserve(ctx, key, ev.StartsAt)
	if err != nil {
		report.Failed++
		s.logger.Error("reserve reminder", "key", key.String(), "err", err)
		return
	}
	if !ok {
		report.AlreadySent++
		return
	}

	res, err := s.dispatcher.Dispatch(ctx, domain.CategoryEventReminder, []string{userID}, reminderPayload(ev))

	// The dispatch outlives a Stop, so its outcome has to be recorded even then.
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dedupTimeout)
	defer cancel()

	if err != nil || res.Created != 1 {
		report.Failed++
		s.logger.Warn("event reminder not recorded", "key", key.String(), "err", err)
		if err := s.dedup.Release(bctx, key); err != nil {
			s.logger.Error("release reminder", "key", key.String(), "err", err)
		}
		return
	}

	if err := s.dedup.Commit(bctx, key, ev.StartsAt); err != nil {
		s.logger.Error("commit reminder", "key", key.String(), "err", err)
	}
	report.Sent++
	s.metrics.ReminderSent()
}

func reminderPayload(ev domain.Event) domain.Payload {
	return domain.Payload{
		Type:     "event",
		SourceID: ev.EventID,
		ActorID:  ev.OrganizerID,
		Extra: map[string]string{
			"event_title": ev.Title,
			"starts_at":   ev.StartsAt.UTC().Format(time.RFC3339),
		},
	}
}
