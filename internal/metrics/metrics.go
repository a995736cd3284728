// Package metrics defines the Prometheus collectors for dispatch, push and reminder activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push send outcomes.
const (
	PushOK           = "ok"
	PushFailed       = "failed"
	PushInvalidToken = "invalid_token"
)

// Reminder cycle outcomes.
const (
	CycleCompleted = "completed"
	CycleSkipped   = "skipped"
	CyclePanicked  = "panicked"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	notificationsCreated *prometheus.CounterVec
	notificationsFailed  *prometheus.CounterVec
	pushSends            *prometheus.CounterVec
	dispatchDuration     *prometheus.HistogramVec
	reminderCycles       *prometheus.CounterVec
	remindersSent        prometheus.Counter
	httpRequests         *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		notificationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_notifications_created_total",
			Help: "In-app notification records written.",
		}, []string{"category"}),
		notificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_notifications_failed_total",
			Help: "Recipients whose in-app record could not be written.",
		}, []string{"category"}),
		pushSends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_push_sends_total",
			Help: "Push send attempts by outcome.",
		}, []string{"category", "result"}),
		dispatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notifier_dispatch_duration_seconds",
			Help:    "Wall time of one dispatch including push fan-out.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),
		reminderCycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_reminder_cycles_total",
			Help: "Reminder scheduler cycles by outcome.",
		}, []string{"result"}),
		remindersSent: f.NewCounter(prometheus.CounterOpts{
			Name: "notifier_reminders_sent_total",
			Help: "Event reminders committed to the dedup cache.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) NotificationCreated(category string) {
	if m == nil {
		return
	}
	m.notificationsCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) NotificationFailed(category string) {
	if m == nil {
		return
	}
	m.notificationsFailed.WithLabelValues(category).Inc()
}

func (m *Metrics) PushSend(category, result string) {
	if m == nil {
		return
	}
	m.pushSends.WithLabelValues(category, result).Inc()
}

func (m *Metrics) ObserveDispatch(category string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDuration.WithLabelValues(category).Observe(d.Seconds())
}

func (m *Metrics) ReminderCycle(result string) {
	if m == nil {
		return
	}
	m.reminderCycles.WithLabelValues(result).Inc()
}

func (m *Metrics) ReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}
