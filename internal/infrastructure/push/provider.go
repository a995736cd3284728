// Package push delivers device notifications through a third-party provider.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-community-notifier/internal/config"
	"github.com/go-community-notifier/internal/domain"
)

// ErrInvalidToken marks a token the provider reports as permanently unregistered.
// Any other Send error is transient.
var ErrInvalidToken = errors.New("push token permanently invalid")

// Message is the minimal push payload: the full notification body stays in the in-app record.
type Message struct {
	Token    string
	Platform domain.Platform
	Title    string
	Body     string
	Data     map[string]string
}

// Provider sends one message to one device.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the provider named by cfg.PushProvider.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	switch cfg.PushProvider {
	case config.PushProviderFCM:
		return NewFCMProvider(ctx, cfg.FirebaseCredentialsFile)
	case config.PushProviderSNS:
		return NewSNSProvider(ctx, cfg)
	case config.PushProviderLog, "":
		return NewLogProvider(logger), nil
	}
	return nil, fmt.Errorf("unknown push provider %q", cfg.PushProvider)
}

func invalidToken(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrInvalidToken, err)
}
