package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository/memory"
	"github.com/kbmc/portal-api/internal/service/delivery"
	"github.com/kbmc/portal-api/pkg/metrics"
)

// serviceSource exposes a delivery.Service the way the HTTP client does.
type serviceSource struct {
	svc *delivery.Service
}

func (s serviceSource) FetchNotifications(ctx context.Context, role string) ([]*model.DeliveredNotification, error) {
	return s.svc.FetchForRole(ctx, role)
}

func (s serviceSource) MarkRead(ctx context.Context, id int64) error { return s.svc.MarkRead(ctx, id) }
func (s serviceSource) Delete(ctx context.Context, id int64) error   { return s.svc.Delete(ctx, id) }

// scriptedSource returns whatever its fields say, counting calls.
type scriptedSource struct {
	mu      sync.Mutex
	list    []*model.DeliveredNotification
	err     error
	block   chan struct{}
	fetches atomic.Int32
}

func (s *scriptedSource) FetchNotifications(ctx context.Context, _ string) ([]*model.DeliveredNotification, error) {
	s.fetches.Add(1)
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*model.DeliveredNotification, len(s.list))
	for i, n := range s.list {
		c := *n
		out[i] = &c
	}
	return out, nil
}

func (s *scriptedSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *scriptedSource) MarkRead(context.Context, int64) error { return nil }
func (s *scriptedSource) Delete(context.Context, int64) error   { return nil }

func seedDelivered(t *testing.T, svc *delivery.Service, role string, n int) {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, svc.Create(context.Background(), &model.DeliveredNotification{
			Heading:     model.HeadingApproved,
			Description: "Budget request has been approved",
			Role:        role,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func fastConfig() Config {
	return Config{Interval: 10 * time.Millisecond, FetchTimeout: time.Second}
}

func TestSessionTracksUnreadAcrossTicks(t *testing.T) {
	store := memory.NewStore([]string{"budget"})
	svc := delivery.NewService(store.Delivered(), 0, nil)
	seedDelivered(t, svc, "admin", 2)
	seedDelivered(t, svc, "finance", 1)

	s := NewSession(serviceSource{svc}, fastConfig(), nil, nil)
	s.Start("admin")
	defer func() {
		s.Stop()
		s.Wait()
	}()

	require.Eventually(t, func() bool {
		v := s.Snapshot()
		return len(v.Notifications) == 2 && v.Unread == 2
	}, time.Second, 5*time.Millisecond)

	first := s.Snapshot().Notifications[0]
	require.NoError(t, s.MarkRead(context.Background(), first.ID))
	assert.Equal(t, 1, s.UnreadCount())

	since := s.Snapshot().LastSync
	require.Eventually(t, func() bool {
		v := s.Snapshot()
		return v.LastSync.After(since) && v.Unread == 1
	}, time.Second, 5*time.Millisecond)

	v := s.Snapshot()
	assert.Len(t, v.Notifications, 2)
	assert.Equal(t, 1, v.Unread)
	for _, n := range v.Notifications {
		assert.Equal(t, "admin", n.Role)
	}
}

func TestSessionSortsNewestFirst(t *testing.T) {
	store := memory.NewStore(nil)
	svc := delivery.NewService(store.Delivered(), 0, nil)
	seedDelivered(t, svc, "admin", 3)

	s := NewSession(serviceSource{svc}, fastConfig(), nil, nil)
	s.Start("admin")
	defer func() {
		s.Stop()
		s.Wait()
	}()

	require.Eventually(t, func() bool { return len(s.Snapshot().Notifications) == 3 }, time.Second, 5*time.Millisecond)

	list := s.Snapshot().Notifications
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt))
	}
}

func TestSessionKeepsListOnFetchError(t *testing.T) {
	src := &scriptedSource{list: []*model.DeliveredNotification{
		{ID: 1, Role: "admin", Heading: model.HeadingApproved, CreatedAt: time.Now()},
	}}
	m := metrics.New("test")
	s := NewSession(src, fastConfig(), nil, m)
	s.Start("admin")
	defer func() {
		s.Stop()
		s.Wait()
	}()

	require.Eventually(t, func() bool { return len(s.Snapshot().Notifications) == 1 }, time.Second, 5*time.Millisecond)

	src.setErr(errors.New("connection refused"))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.PollTicks.WithLabelValues("error")) >= 2
	}, time.Second, 5*time.Millisecond)

	v := s.Snapshot()
	assert.Len(t, v.Notifications, 1)
	assert.Equal(t, Polling, v.State)
}

func TestSessionSkipsTickWhileFetchInFlight(t *testing.T) {
	src := &scriptedSource{block: make(chan struct{})}
	m := metrics.New("test")
	s := NewSession(src, fastConfig(), nil, m)
	s.Start("admin")

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.PollTicks.WithLabelValues("skipped")) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), src.fetches.Load())

	s.Stop()
	close(src.block)
	s.Wait()

	// The blocked fetch finished after Stop and was thrown away.
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PollTicks.WithLabelValues("stale")))
	assert.Empty(t, s.Snapshot().Notifications)
}

func TestSessionStopHaltsPolling(t *testing.T) {
	src := &scriptedSource{}
	s := NewSession(src, fastConfig(), nil, nil)
	s.Start("admin")
	require.Eventually(t, func() bool { return src.fetches.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Wait()
	after := src.fetches.Load()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, after, src.fetches.Load())
	v := s.Snapshot()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, "idle", v.State.String())
	assert.Empty(t, v.Role)
}

func TestSessionStartSemantics(t *testing.T) {
	src := &scriptedSource{}
	s := NewSession(src, Config{Interval: time.Hour, FetchTimeout: time.Second}, nil, nil)

	s.Start("admin")
	require.Eventually(t, func() bool { return src.fetches.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Same role is a no-op; no extra immediate fetch.
	s.Start("admin")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), src.fetches.Load())

	// A new role restarts with an immediate fetch.
	s.Start("finance")
	require.Eventually(t, func() bool { return src.fetches.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "finance", s.Snapshot().Role)

	// Empty role stops.
	s.Start("")
	s.Wait()
	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestSessionShowAllTogglesVisibleWindow(t *testing.T) {
	store := memory.NewStore(nil)
	svc := delivery.NewService(store.Delivered(), 0, nil)
	seedDelivered(t, svc, "admin", 7)

	var updates atomic.Int32
	s := NewSession(serviceSource{svc}, fastConfig(), nil, nil)
	s.OnUpdate = func(View) { updates.Add(1) }
	s.Start("admin")
	defer func() {
		s.Stop()
		s.Wait()
	}()

	require.Eventually(t, func() bool { return len(s.Snapshot().Notifications) == 7 }, time.Second, 5*time.Millisecond)

	v := s.Snapshot()
	assert.Len(t, v.Visible, delivery.DefaultPageSize)
	assert.Equal(t, v.Notifications[0].ID, v.Visible[0].ID)

	s.SetShowAll(true)
	v = s.Snapshot()
	assert.True(t, v.ShowAll)
	assert.Len(t, v.Visible, 7)
	assert.Positive(t, updates.Load())
}

func TestSessionDeleteIsOptimistic(t *testing.T) {
	store := memory.NewStore(nil)
	svc := delivery.NewService(store.Delivered(), 0, nil)
	seedDelivered(t, svc, "admin", 2)

	s := NewSession(serviceSource{svc}, Config{Interval: time.Hour, FetchTimeout: time.Second}, nil, nil)
	s.Start("admin")
	defer func() {
		s.Stop()
		s.Wait()
	}()
	require.Eventually(t, func() bool { return len(s.Snapshot().Notifications) == 2 }, time.Second, 5*time.Millisecond)

	id := s.Snapshot().Notifications[0].ID
	require.NoError(t, s.Delete(context.Background(), id))

	v := s.Snapshot()
	assert.Len(t, v.Notifications, 1)
	assert.Equal(t, 1, v.Unread)
	_, err := store.Delivered().Get(context.Background(), id)
	assert.Error(t, err)
}

func TestSessionDefaultAvatar(t *testing.T) {
	custom := "https://cdn.example.com/a.png"
	src := &scriptedSource{list: []*model.DeliveredNotification{
		{ID: 1, Role: "admin", CreatedAt: time.Now()},
		{ID: 2, Role: "admin", Avatar: &custom, CreatedAt: time.Now().Add(-time.Minute)},
	}}
	cfg := fastConfig()
	cfg.DefaultAvatar = "/static/avatar.png"
	s := NewSession(src, cfg, nil, nil)
	s.Start("admin")
	defer func() {
		s.Stop()
		s.Wait()
	}()
	require.Eventually(t, func() bool { return len(s.Snapshot().Notifications) == 2 }, time.Second, 5*time.Millisecond)

	v := s.Snapshot()
	require.NotNil(t, v.Notifications[0].Avatar)
	assert.Equal(t, "/static/avatar.png", *v.Notifications[0].Avatar)
	assert.Equal(t, custom, *v.Notifications[1].Avatar)
}
