package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
	"github.com/kbmc/portal-api/internal/repository/memory"
	apperrors "github.com/kbmc/portal-api/pkg/errors"
	"github.com/kbmc/portal-api/pkg/metrics"
)

func newTestService(t *testing.T, ttl time.Duration) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(nil)
	return NewService(store.Delivered(), ttl, metrics.New("test")), store
}

func create(t *testing.T, s *Service, role, heading string) *model.DeliveredNotification {
	t.Helper()
	n := &model.DeliveredNotification{Heading: heading, Description: heading + " for " + role, Role: role}
	require.NoError(t, s.Create(context.Background(), n))
	return n
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	s, _ := newTestService(t, 0)
	ctx := context.Background()

	n := &model.DeliveredNotification{Heading: "Approved", Description: "Budget Q1 has been successfully approved.", Role: "finance", Readed: model.Read}
	require.NoError(t, s.Create(ctx, n))
	assert.NotZero(t, n.ID)

	got, err := s.FetchForRole(ctx, "finance")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Approved", got[0].Heading)
	assert.Equal(t, "Budget Q1 has been successfully approved.", got[0].Description)
	assert.Equal(t, "finance", got[0].Role)
	assert.Equal(t, model.Unread, got[0].Readed)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestService(t, 0)

	err := s.Create(context.Background(), &model.DeliveredNotification{Heading: "Approved", Description: "x"})
	assert.ErrorIs(t, err, apperrors.BadRequestKind)
}

func TestFetchForRoleIsExactMatch(t *testing.T) {
	s, _ := newTestService(t, 0)
	ctx := context.Background()
	create(t, s, "finance", "Approved")
	create(t, s, "Admin", "Approved")
	create(t, s, "admin", "Rejected")

	got, err := s.FetchForRole(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rejected", got[0].Heading)
	for _, n := range got {
		assert.NotEqual(t, "finance", n.Role)
	}

	_, err = s.FetchForRole(ctx, "")
	assert.ErrorIs(t, err, apperrors.BadRequestKind)
}

func TestMarkReadIsIdempotentAndDecrementsUnread(t *testing.T) {
	s, _ := newTestService(t, time.Minute)
	ctx := context.Background()
	first := create(t, s, "admin", "Approved")
	create(t, s, "admin", "Rejected")

	before, err := s.UnreadCount(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, before)

	require.NoError(t, s.MarkRead(ctx, first.ID))
	after, err := s.UnreadCount(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, before-1, after)

	require.NoError(t, s.MarkRead(ctx, first.ID))
	again, err := s.UnreadCount(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, after, again)

	list, err := s.FetchForRole(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, again, CountUnread(list))
}

func TestMarkReadAndDeleteNotFound(t *testing.T) {
	s, _ := newTestService(t, 0)
	ctx := context.Background()

	assert.ErrorIs(t, s.MarkRead(ctx, 42), apperrors.NotFoundKind)
	assert.ErrorIs(t, s.Delete(ctx, 42), apperrors.NotFoundKind)
}

func TestDeleteRemovesPermanently(t *testing.T) {
	s, _ := newTestService(t, time.Minute)
	ctx := context.Background()
	n := create(t, s, "hr", "Approved")

	count, err := s.UnreadCount(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.Delete(ctx, n.ID))
	list, err := s.FetchForRole(ctx, "hr")
	require.NoError(t, err)
	assert.Empty(t, list)

	count, err = s.UnreadCount(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

type failingRepo struct {
	repository.DeliveredNotificationRepository
	err error
}

func (f failingRepo) ListByRole(context.Context, string) ([]*model.DeliveredNotification, error) {
	return nil, f.err
}

func (f failingRepo) MarkRead(context.Context, int64) error {
	return f.err
}

func TestStoreFailuresArePersistenceErrors(t *testing.T) {
	store := memory.NewStore(nil)
	s := NewService(failingRepo{store.Delivered(), errors.New("connection refused")}, 0, nil)
	ctx := context.Background()

	_, err := s.FetchForRole(ctx, "admin")
	assert.ErrorIs(t, err, apperrors.PersistenceKind)
	assert.ErrorIs(t, s.MarkRead(ctx, 1), apperrors.PersistenceKind)
}
