package push

import (
	"context"
	"log/slog"
)

// LogProvider records sends in the log instead of delivering them. It is the development
// default and the fallback when no real provider is configured.
type LogProvider struct {
	logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Send(_ context.Context, msg Message) error {
	p.logger.Info("push send (log provider)",
		"platform", msg.Platform,
		"title", msg.Title,
		"link", msg.Data["link"])
	return nil
}
