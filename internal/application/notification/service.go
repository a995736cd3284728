package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-community-notifier/internal/domain"
	"github.com/go-community-notifier/internal/pkg/id"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type Service interface {
	// Record durably stores one notification before returning.
	Record(ctx context.Context, userID string, category domain.Category, payload domain.Payload) (*domain.Notification, error)
	ListForUser(ctx context.Context, userID string, opts domain.ListOptions) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, opts domain.ListOptions) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, notificationID string) (*domain.Notification, error)
}

// Publisher announces a freshly stored notification to connected clients.
type Publisher interface {
	Publish(n *domain.Notification) error
}

type service struct {
	repo   notificationStore
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds the store service. pub may be nil.
func NewService(repo notificationStore, pub Publisher, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, pub: pub, logger: logger, now: time.Now}
}

func (s *service) Record(ctx context.Context, userID string, category domain.Category, payload domain.Payload) (*domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("recipient is required: %w", domain.ErrBadRequest)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q: %w", category, domain.ErrBadRequest)
	}
	if payload.Type == "" {
		return nil, fmt.Errorf("payload type is required: %w", domain.ErrBadRequest)
	}
	now := s.now().UTC()
	n := &domain.Notification{
		NotificationID: id.NewAt(now),
		UserID:         userID,
		Category:       category,
		Payload:        payload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification for %s: %w", userID, err)
	}
	if s.pub != nil {
		if err := s.pub.Publish(n); err != nil {
			s.logger.Warn("realtime publish failed", "notification_id", n.NotificationID, "err", err)
		}
	}
	return n, nil
}

func (s *service) ListForUser(ctx context.Context, userID string, opts domain.ListOptions) ([]domain.Notification, error) {
	switch {
	case opts.Limit <= 0:
		opts.Limit = DefaultLimit
	case opts.Limit > MaxLimit:
		opts.Limit = MaxLimit
	}
	return s.repo.ListByUser(ctx, userID, opts)
}

func (s *service) MarkRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if n.IsRead {
		return n, nil
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
