package pushtoken

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-community-notifier/internal/domain"
)

type Service interface {
	// Register upserts by token; a token seen under another user moves to userID.
	Register(ctx context.Context, userID, token string, platform domain.Platform) (*domain.PushToken, error)
	TokensFor(ctx context.Context, userID string) ([]domain.PushToken, error)
	Remove(ctx context.Context, token, userID string) error
	// RemoveInvalid deletes a token the push provider rejected. Absent tokens are not an error.
	RemoveInvalid(ctx context.Context, token string) error
	Touch(ctx context.Context, token string) error
}

type tokenStore interface {
	Upsert(ctx context.Context, token, userID string, platform domain.Platform, now time.Time) (*domain.PushToken, error)
	Get(ctx context.Context, token string) (*domain.PushToken, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PushToken, error)
	DeleteOwned(ctx context.Context, token, userID string) error
	Delete(ctx context.Context, token string) error
	Touch(ctx context.Context, token string, at time.Time) error
}

type service struct {
	repo tokenStore
	now  func() time.Time
}

func NewService(repo tokenStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Register(ctx context.Context, userID, token string, platform domain.Platform) (*domain.PushToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("token is required: %w", domain.ErrBadRequest)
	}
	if platform == "" {
		platform = domain.PlatformUnknown
	}
	return s.repo.Upsert(ctx, token, userID, platform, s.now().UTC())
}

func (s *service) TokensFor(ctx context.Context, userID string) ([]domain.PushToken, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Remove(ctx context.Context, token, userID string) error {
	t, err := s.repo.Get(ctx, token)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	return s.repo.DeleteOwned(ctx, token, userID)
}

func (s *service) RemoveInvalid(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, token)
}

// Touch ignores tokens removed while a send was in flight.
func (s *service) Touch(ctx context.Context, token string) error {
	err := s.repo.Touch(ctx, token, s.now().UTC())
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
