package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
	apperrors "github.com/kbmc/portal-api/pkg/errors"
	"github.com/kbmc/portal-api/pkg/metrics"
)

// Servicer is the delivery/read-state tracker.
type Servicer interface {
	Create(ctx context.Context, n *model.DeliveredNotification) error
	List(ctx context.Context) ([]*model.DeliveredNotification, error)
	FetchForRole(ctx context.Context, role string) ([]*model.DeliveredNotification, error)
	UnreadCount(ctx context.Context, role string) (int, error)
	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo    repository.DeliveredNotificationRepository
	unread  *cache.Cache
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService builds the tracker. Unread counts are cached per role for
// cacheTTL; a zero TTL disables the cache.
func NewService(repo repository.DeliveredNotificationRepository, cacheTTL time.Duration, m *metrics.Metrics) *Service {
	s := &Service{
		repo:    repo,
		metrics: m,
		now:     time.Now,
	}
	if cacheTTL > 0 {
		s.unread = cache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

func (s *Service) Create(ctx context.Context, n *model.DeliveredNotification) error {
	if err := validate(n); err != nil {
		return err
	}

	// New notifications always start unread.
	n.Readed = model.Unread
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}

	err := s.repo.Create(ctx, n)
	s.metrics.ObserveDB("create_notification", err)
	if err != nil {
		return apperrors.NewPersistence("create notification", err)
	}

	if s.metrics != nil {
		s.metrics.NotificationsCreated.WithLabelValues(n.Heading).Inc()
	}
	s.invalidate(n.Role)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.DeliveredNotification, error) {
	list, err := s.repo.List(ctx)
	s.metrics.ObserveDB("list_notifications", err)
	if err != nil {
		return nil, apperrors.NewPersistence("list notifications", err)
	}
	return SortNewestFirst(list), nil
}

func (s *Service) FetchForRole(ctx context.Context, role string) ([]*model.DeliveredNotification, error) {
	if role == "" {
		return nil, apperrors.NewBadRequest("role is required", nil)
	}

	list, err := s.repo.ListByRole(ctx, role)
	s.metrics.ObserveDB("list_notifications_for_role", err)
	if err != nil {
		return nil, apperrors.NewPersistence("list notifications", err)
	}
	// The store filters already; keep the exact-match rule independent of it.
	return SortNewestFirst(FilterByRole(list, role)), nil
}

func (s *Service) UnreadCount(ctx context.Context, role string) (int, error) {
	if role == "" {
		return 0, apperrors.NewBadRequest("role is required", nil)
	}

	if s.unread != nil {
		if v, ok := s.unread.Get(role); ok {
			return v.(int), nil
		}
	}

	count, err := s.repo.CountUnread(ctx, role)
	s.metrics.ObserveDB("count_unread", err)
	if err != nil {
		return 0, apperrors.NewPersistence("count unread notifications", err)
	}

	if s.unread != nil {
		s.unread.SetDefault(role, count)
	}
	return count, nil
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	err := s.repo.MarkRead(ctx, id)
	s.metrics.ObserveDB("mark_read", err)
	if err != nil {
		return storeError(err, "notification", "mark notification read")
	}

	if s.metrics != nil {
		s.metrics.NotificationsRead.Inc()
	}
	s.invalidateAll()
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	s.metrics.ObserveDB("delete_notification", err)
	if err != nil {
		return storeError(err, "notification", "delete notification")
	}

	s.invalidateAll()
	return nil
}

// Invalidate drops the cached unread count for role. Writers that insert
// notifications outside this service call it after committing.
func (s *Service) Invalidate(role string) {
	s.invalidate(role)
}

func (s *Service) invalidate(role string) {
	if s.unread != nil {
		s.unread.Delete(role)
	}
}

// invalidateAll is used where the role of the touched row is not known.
func (s *Service) invalidateAll() {
	if s.unread != nil {
		s.unread.Flush()
	}
}

func validate(n *model.DeliveredNotification) error {
	switch {
	case n == nil:
		return apperrors.NewBadRequest("notification is required", nil)
	case strings.TrimSpace(n.Heading) == "":
		return apperrors.NewBadRequest("heading is required", nil)
	case strings.TrimSpace(n.Description) == "":
		return apperrors.NewBadRequest("description is required", nil)
	case strings.TrimSpace(n.Role) == "":
		return apperrors.NewBadRequest("role is required", nil)
	}
	return nil
}

// storeError maps repository errors onto the application taxonomy.
func storeError(err error, resource, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return apperrors.NewPersistence(op, fmt.Errorf("%s: %w", resource, err))
}
