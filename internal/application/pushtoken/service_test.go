package pushtoken

import (
	"context"
	"testing"
	"time"

	"github.com/go-community-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) Upsert(ctx context.Context, token, userID string, platform domain.Platform, now time.Time) (*domain.PushToken, error) {
	args := m.Called(ctx, token, userID, platform, now)
	if t, _ := args.Get(0).(*domain.PushToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) Get(ctx context.Context, token string) (*domain.PushToken, error) {
	args := m.Called(ctx, token)
	if t, _ := args.Get(0).(*domain.PushToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) ListByUser(ctx context.Context, userID string) ([]domain.PushToken, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.PushToken), args.Error(1)
}
func (m *mockTokenStore) DeleteOwned(ctx context.Context, token, userID string) error {
	return m.Called(ctx, token, userID).Error(0)
}
func (m *mockTokenStore) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockTokenStore) Touch(ctx context.Context, token string, at time.Time) error {
	return m.Called(ctx, token, at).Error(0)
}

func TestRegister_UpsertsTrimmedToken(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Upsert", mock.Anything, "tok", "u1", domain.PlatformIOS, mock.AnythingOfType("time.Time")).
		Return(&domain.PushToken{Token: "tok", UserID: "u1", Platform: domain.PlatformIOS}, nil)

	pt, err := NewService(repo).Register(context.Background(), "u1", "  tok ", domain.PlatformIOS)
	require.NoError(t, err)
	assert.Equal(t, "u1", pt.UserID)
	repo.AssertExpectations(t)
}

func TestRegister_EmptyPlatformBecomesUnknown(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Upsert", mock.Anything, "tok", "u1", domain.PlatformUnknown, mock.Anything).
		Return(&domain.PushToken{Token: "tok"}, nil)

	_, err := NewService(repo).Register(context.Background(), "u1", "tok", "")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRegister_EmptyToken(t *testing.T) {
	_, err := NewService(&mockTokenStore{}).Register(context.Background(), "u1", "   ", domain.PlatformIOS)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRemove_Owner(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "tok").Return(&domain.PushToken{Token: "tok", UserID: "u1"}, nil)
	repo.On("DeleteOwned", mock.Anything, "tok", "u1").Return(nil)

	require.NoError(t, NewService(repo).Remove(context.Background(), "tok", "u1"))
	repo.AssertExpectations(t)
}

func TestRemove_OtherUserIsForbidden(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "tok").Return(&domain.PushToken{Token: "tok", UserID: "u1"}, nil)

	err := NewService(repo).Remove(context.Background(), "tok", "u2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "DeleteOwned", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemove_Missing(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "tok").Return(nil, domain.ErrNotFound)

	assert.ErrorIs(t, NewService(repo).Remove(context.Background(), "tok", "u1"), domain.ErrNotFound)
}

func TestRemove_DeletedConcurrentlyIsNotFound(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "tok").Return(&domain.PushToken{Token: "tok", UserID: "u1"}, nil)
	repo.On("DeleteOwned", mock.Anything, "tok", "u1").Return(domain.ErrNotFound)

	err := NewService(repo).Remove(context.Background(), "tok", "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrForbidden)
}

func TestRemoveInvalid_Unconditional(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Delete", mock.Anything, "tok").Return(nil)

	require.NoError(t, NewService(repo).RemoveInvalid(context.Background(), "tok"))
	repo.AssertExpectations(t)
}

func TestTouch_IgnoresRemovedToken(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Touch", mock.Anything, "tok", mock.Anything).Return(domain.ErrNotFound)

	assert.NoError(t, NewService(repo).Touch(context.Background(), "tok"))
}

// memTokenStore keys tokens the way the table does, so an upsert moves ownership.
type memTokenStore struct {
	mockTokenStore
	byToken map[string]domain.PushToken
}

func (m *memTokenStore) Upsert(_ context.Context, token, userID string, platform domain.Platform, now time.Time) (*domain.PushToken, error) {
	pt := domain.PushToken{Token: token, UserID: userID, Platform: platform, LastUsedAt: now, CreatedAt: now}
	m.byToken[token] = pt
	return &pt, nil
}

func (m *memTokenStore) ListByUser(_ context.Context, userID string) ([]domain.PushToken, error) {
	var out []domain.PushToken
	for _, pt := range m.byToken {
		if pt.UserID == userID {
			out = append(out, pt)
		}
	}
	return out, nil
}

func TestRegister_SameTokenReassignsOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memTokenStore{byToken: map[string]domain.PushToken{}})

	_, err := svc.Register(ctx, "old", "tok", domain.PlatformAndroid)
	require.NoError(t, err)
	_, err = svc.Register(ctx, "new", "tok", domain.PlatformAndroid)
	require.NoError(t, err)

	oldTokens, err := svc.TokensFor(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, oldTokens)

	newTokens, err := svc.TokensFor(ctx, "new")
	require.NoError(t, err)
	require.Len(t, newTokens, 1)
	assert.Equal(t, "tok", newTokens[0].Token)
}
