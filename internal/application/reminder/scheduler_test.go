package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-community-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memEvents struct {
	events   []domain.Event
	rsvps    []domain.EventRSVP
	failFor  map[string]bool
	panicked bool
}

func (m *memEvents) ListUpcoming(_ context.Context, from, to time.Time) ([]domain.Event, error) {
	if m.panicked {
		panic("corrupt event row")
	}
	var out []domain.Event
	for _, e := range m.events {
		if !e.StartsAt.Before(from) && !e.StartsAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEvents) ConfirmedAttendees(_ context.Context, eventID string) ([]string, error) {
	if m.failFor[eventID] {
		return nil, errors.New("rsvp query failed")
	}
	var out []string
	for _, r := range m.rsvps {
		if r.EventID == eventID && r.Status == domain.RSVPStatusGoing {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	calls   []domain.Payload
	users   []string
	failFor map[string]bool
	block   chan struct{}
	entered chan struct{}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, category domain.Category, recipients []string, payload domain.Payload) (domain.DispatchResult, error) {
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if category != domain.CategoryEventReminder {
		return domain.DispatchResult{}, errors.New("unexpected category")
	}
	if d.failFor[recipients[0]] {
		return domain.DispatchResult{Recipients: 1, Failed: 1}, nil
	}
	d.calls = append(d.calls, payload)
	d.users = append(d.users, recipients...)
	return domain.DispatchResult{Recipients: 1, Created: 1}, nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestScheduler(events *memEvents, d *recordingDispatcher) (*Scheduler, *MemoryDedup, *time.Time) {
	dedup := NewMemoryDedup()
	s := NewScheduler(events, d, dedup, Options{Interval: time.Hour, Window: 24 * time.Hour})
	now := base
	s.now = func() time.Time { return now }
	return s, dedup, &now
}

// --- RunCycle ---

func TestRunCycle_RemindsEachGoingAttendeeOnce(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{{EventID: "E", Title: "Potluck", StartsAt: base.Add(3 * time.Hour), OrganizerID: "org"}},
		rsvps: []domain.EventRSVP{
			{EventID: "E", UserID: "U1", Status: domain.RSVPStatusGoing},
			{EventID: "E", UserID: "U2", Status: domain.RSVPStatusGoing},
			{EventID: "E", UserID: "U3", Status: "maybe"},
		},
	}
	d := &recordingDispatcher{}
	s, dedup, now := newTestScheduler(events, d)

	first := s.RunCycle(context.Background())
	assert.Equal(t, 2, first.Sent)
	assert.ElementsMatch(t, []string{"U1", "U2"}, d.users)
	assert.Equal(t, 2, dedup.Len())

	p := d.calls[0]
	assert.Equal(t, "event", p.Type)
	assert.Equal(t, "E", p.SourceID)
	assert.Equal(t, "org", p.ActorID)
	assert.Equal(t, "Potluck", p.Extra["event_title"])
	assert.Equal(t, base.Add(3*time.Hour).Format(time.RFC3339), p.Extra["starts_at"])

	*now = base.Add(time.Hour)
	second := s.RunCycle(context.Background())
	assert.Zero(t, second.Sent)
	assert.Equal(t, 2, second.AlreadySent)
	assert.Equal(t, 2, d.count())

	*now = base.Add(4 * time.Hour)
	third := s.RunCycle(context.Background())
	assert.Zero(t, third.Events)
	assert.Equal(t, 2, third.Evicted)
	assert.Zero(t, dedup.Len())
	assert.Equal(t, 2, d.count())
}

func TestRunCycle_IgnoresEventsOutsideWindow(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{
			{EventID: "past", StartsAt: base.Add(-time.Minute)},
			{EventID: "far", StartsAt: base.Add(30 * time.Hour)},
		},
		rsvps: []domain.EventRSVP{
			{EventID: "past", UserID: "U1", Status: domain.RSVPStatusGoing},
			{EventID: "far", UserID: "U1", Status: domain.RSVPStatusGoing},
		},
	}
	d := &recordingDispatcher{}
	s, _, _ := newTestScheduler(events, d)

	r := s.RunCycle(context.Background())
	assert.Zero(t, r.Events)
	assert.Zero(t, d.count())
}

func TestRunCycle_FailedDispatchIsRetriedNextCycle(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{{EventID: "E", StartsAt: base.Add(2 * time.Hour)}},
		rsvps:  []domain.EventRSVP{{EventID: "E", UserID: "U1", Status: domain.RSVPStatusGoing}},
	}
	d := &recordingDispatcher{failFor: map[string]bool{"U1": true}}
	s, dedup, _ := newTestScheduler(events, d)

	r := s.RunCycle(context.Background())
	assert.Equal(t, 1, r.Failed)
	assert.Zero(t, dedup.Len())

	d.mu.Lock()
	d.failFor = nil
	d.mu.Unlock()
	r = s.RunCycle(context.Background())
	assert.Equal(t, 1, r.Sent)
	assert.Equal(t, 1, d.count())
}

func TestRunCycle_EventFailureDoesNotStopOthers(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{
			{EventID: "bad", StartsAt: base.Add(time.Hour)},
			{EventID: "good", StartsAt: base.Add(2 * time.Hour)},
		},
		rsvps:   []domain.EventRSVP{{EventID: "good", UserID: "U1", Status: domain.RSVPStatusGoing}},
		failFor: map[string]bool{"bad": true},
	}
	d := &recordingDispatcher{}
	s, _, _ := newTestScheduler(events, d)

	r := s.RunCycle(context.Background())
	assert.Equal(t, 2, r.Events)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Sent)
}

func TestRunCycle_RecoversPanic(t *testing.T) {
	events := &memEvents{panicked: true}
	s, _, _ := newTestScheduler(events, &recordingDispatcher{})

	var r CycleReport
	require.NotPanics(t, func() { r = s.RunCycle(context.Background()) })
	assert.Contains(t, r.Error, "corrupt event row")

	events.panicked = false
	r = s.RunCycle(context.Background())
	assert.Empty(t, r.Error)
}

func TestRunCycle_ConcurrentCycleIsSkipped(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{{EventID: "E", StartsAt: base.Add(time.Hour)}},
		rsvps:  []domain.EventRSVP{{EventID: "E", UserID: "U1", Status: domain.RSVPStatusGoing}},
	}
	d := &recordingDispatcher{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s, _, _ := newTestScheduler(events, d)

	firstDone := make(chan CycleReport)
	go func() { firstDone <- s.RunCycle(context.Background()) }()
	<-d.entered

	second := s.RunCycle(context.Background())
	assert.True(t, second.Skipped)

	close(d.block)
	first := <-firstDone
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, first.Sent)
}

// --- Start / Stop ---

func TestStartStop_RunsImmediatelyAndStopsCleanly(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{{EventID: "E", StartsAt: base.Add(time.Hour)}},
		rsvps:  []domain.EventRSVP{{EventID: "E", UserID: "U1", Status: domain.RSVPStatusGoing}},
	}
	d := &recordingDispatcher{}
	s, _, _ := newTestScheduler(events, d)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	s.Stop()
}

func TestStop_WaitsForInFlightCycle(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{{EventID: "E", StartsAt: base.Add(time.Hour)}},
		rsvps:  []domain.EventRSVP{{EventID: "E", UserID: "U1", Status: domain.RSVPStatusGoing}},
	}
	d := &recordingDispatcher{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s, dedup, _ := newTestScheduler(events, d)

	require.NoError(t, s.Start(context.Background()))
	<-d.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(d.block)
	<-stopped
	assert.Equal(t, 1, dedup.Len())
}

// --- MemoryDedup ---

func TestMemoryDedup_ReserveIsExclusive(t *testing.T) {
	m := NewMemoryDedup()
	key := domain.ReminderKey{EventID: "E", UserID: "U"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := m.Reserve(context.Background(), key, base)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryDedup_ReleaseKeepsCommitted(t *testing.T) {
	m := NewMemoryDedup()
	key := domain.ReminderKey{EventID: "E", UserID: "U"}
	ctx := context.Background()

	ok, _ := m.Reserve(ctx, key, base)
	require.True(t, ok)
	require.NoError(t, m.Commit(ctx, key, base))
	require.NoError(t, m.Release(ctx, key))
	assert.Equal(t, 1, m.Len())

	n, _ := m.EvictStarted(ctx, base)
	assert.Zero(t, n, "an event starting exactly now has not passed")
	n, _ = m.EvictStarted(ctx, base.Add(time.Second))
	assert.Equal(t, 1, n)
}

// ctxDedup rejects bookkeeping on a cancelled context, like a network-backed cache.
type ctxDedup struct {
	*MemoryDedup
	commits int
}

func (c *ctxDedup) Commit(ctx context.Context, key domain.ReminderKey, startsAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.commits++
	return c.MemoryDedup.Commit(ctx, key, startsAt)
}

func (c *ctxDedup) Release(ctx context.Context, key domain.ReminderKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.MemoryDedup.Release(ctx, key)
}

// cancellingDispatcher simulates a shutdown signal arriving mid-delivery.
type cancellingDispatcher struct {
	cancel  context.CancelFunc
	created int
	calls   int
}

func (d *cancellingDispatcher) Dispatch(context.Context, domain.Category, []string, domain.Payload) (domain.DispatchResult, error) {
	d.calls++
	d.cancel()
	return domain.DispatchResult{Recipients: 1, Created: d.created}, nil
}

func TestRunCycle_CommitsReminderDeliveredDuringShutdown(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{{EventID: "E", StartsAt: base.Add(2 * time.Hour)}},
		rsvps:  []domain.EventRSVP{{EventID: "E", UserID: "U1", Status: domain.RSVPStatusGoing}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &cancellingDispatcher{cancel: cancel, created: 1}
	dedup := &ctxDedup{MemoryDedup: NewMemoryDedup()}
	s := NewScheduler(events, d, dedup, Options{Interval: time.Hour, Window: 24 * time.Hour})
	s.now = func() time.Time { return base }

	report := s.RunCycle(ctx)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, dedup.commits)

	again := s.RunCycle(context.Background())
	assert.Equal(t, 1, again.AlreadySent)
	assert.Equal(t, 1, d.calls)
}

func TestRunCycle_ReleasesFailedReminderDuringShutdown(t *testing.T) {
	events := &memEvents{
		events: []domain.Event{{EventID: "E", StartsAt: base.Add(2 * time.Hour)}},
		rsvps:  []domain.EventRSVP{{EventID: "E", UserID: "U1", Status: domain.RSVPStatusGoing}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &cancellingDispatcher{cancel: cancel}
	dedup := &ctxDedup{MemoryDedup: NewMemoryDedup()}
	s := NewScheduler(events, d, dedup, Options{Interval: time.Hour, Window: 24 * time.Hour})
	s.now = func() time.Time { return base }

	report := s.RunCycle(ctx)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, dedup.Len())
}
