package http

import (
	"github.com/go-community-notifier/internal/application/notification"
	"github.com/go-community-notifier/internal/application/pushtoken"
	jwtinfra "github.com/go-community-notifier/internal/infrastructure/jwt"
	"github.com/go-community-notifier/internal/metrics"
	"github.com/go-community-notifier/internal/transport/http/handler"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Notifications notification.Service
	PushTokens    pushtoken.Service
	Dispatcher    handler.Dispatcher
	Reminders     handler.ReminderRunner
	JWTProvider   *jwtinfra.Provider
	Metrics       *metrics.Metrics
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}
