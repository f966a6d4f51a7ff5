// Package poller keeps a client-side view of a role's notifications in sync
// with the server by polling on a fixed interval.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/service/delivery"
	"github.com/kbmc/portal-api/pkg/logger"
	"github.com/kbmc/portal-api/pkg/metrics"
)

// Source is the authoritative notification store as seen by a client.
type Source interface {
	FetchNotifications(ctx context.Context, role string) ([]*model.DeliveredNotification, error)
	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type State int

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

type Config struct {
	Interval time.Duration
	// FetchTimeout bounds one fetch. In-flight fetches are not cancelled by Stop.
	FetchTimeout time.Duration
	PageSize     int
	// DefaultAvatar replaces a missing avatar in views.
	DefaultAvatar string
}

// View is an immutable snapshot of the session.
type View struct {
	Role          string
	State         State
	Notifications []model.DeliveredNotification
	Visible       []model.DeliveredNotification
	Unread        int
	ShowAll       bool
	LastSync      time.Time
}

// Session is one client's polling loop for a single role.
type Session struct {
	source  Source
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Metrics

	// OnUpdate, if set, is called after every successful fetch and local mutation.
	OnUpdate func(View)

	mu       sync.Mutex
	role     string
	state    State
	gen      uint64
	stop     context.CancelFunc
	list     []*model.DeliveredNotification
	unread   int
	showAll  bool
	lastSync time.Time

	wg sync.WaitGroup
}

func NewSession(source Source, cfg Config, log *logger.Logger, m *metrics.Metrics) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = delivery.DefaultPageSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Session{source: source, cfg: cfg, log: log, metrics: m}
}

// Start moves the session to Polling for role: one fetch immediately, then one
// per interval. An empty role is the same as Stop. Starting with a different
// role restarts the loop and drops the old list.
func (s *Session) Start(role string) {
	if role == "" {
		s.Stop()
		return
	}

	s.mu.Lock()
	if s.state == Polling && s.role == role {
		s.mu.Unlock()
		return
	}
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.role = role
	s.state = Polling
	s.stop = cancel
	s.list = nil
	s.unread = 0
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.log.Info("notification polling started", "role", role, "interval", s.cfg.Interval.String())

	s.wg.Add(1)
	go s.loop(ctx, role, gen)
}

// Stop cancels future ticks and returns the session to Idle. A fetch already
// in flight completes but its result is discarded.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.state == Idle {
		return
	}
	s.stop()
	s.stop = nil
	s.state = Idle
	s.role = ""
	s.gen++
	s.log.Info("notification polling stopped")
}

// Wait blocks until the polling goroutines started so far have exited.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) loop(ctx context.Context, role string, gen uint64) {
	defer s.wg.Done()

	var inFlight atomic.Bool
	s.tick(&inFlight, role, gen)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(&inFlight, role, gen)
		}
	}
}

// tick starts a fetch unless the previous one is still outstanding.
func (s *Session) tick(inFlight *atomic.Bool, role string, gen uint64) {
	if !inFlight.CompareAndSwap(false, true) {
		s.observeTick("skipped")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer inFlight.Store(false)
		s.fetch(role, gen)
	}()
}

func (s *Session) fetch(role string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	list, err := s.source.FetchNotifications(ctx, role)
	if s.metrics != nil {
		s.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.observeTick("error")
		s.log.Warn("notification fetch failed", "role", role, "error", err.Error())
		return
	}

	list = delivery.SortNewestFirst(delivery.FilterByRole(list, role))

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.observeTick("stale")
		return
	}
	s.list = list
	s.unread = delivery.CountUnread(list)
	s.lastSync = time.Now()
	view := s.viewLocked()
	s.mu.Unlock()

	s.observeTick("ok")
	s.notify(view)
}

// MarkRead marks id read locally, then on the server. The local change is
// kept on failure; the next poll reconciles.
func (s *Session) MarkRead(ctx context.Context, id int64) error {
	s.mu.Lock()
	for _, n := range s.list {
		if n.ID == id && !n.Readed.IsRead() {
			n.Readed = model.Read
			s.unread--
		}
	}
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)

	if err := s.source.MarkRead(ctx, id); err != nil {
		s.log.Error(err, "mark read failed", "notification_id", id)
		return err
	}
	return nil
}

// Delete removes id locally, then on the server.
func (s *Session) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	kept := s.list[:0:0]
	for _, n := range s.list {
		if n.ID == id {
			continue
		}
		kept = append(kept, n)
	}
	s.list = kept
	s.unread = delivery.CountUnread(kept)
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)

	if err := s.source.Delete(ctx, id); err != nil {
		s.log.Error(err, "delete failed", "notification_id", id)
		return err
	}
	return nil
}

// SetShowAll toggles between the top page and the full list. The fetched set
// is unchanged.
func (s *Session) SetShowAll(all bool) {
	s.mu.Lock()
	s.showAll = all
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Session) viewLocked() View {
	visible := delivery.Visible(s.list, s.showAll, s.cfg.PageSize)
	return View{
		Role:          s.role,
		State:         s.state,
		Notifications: s.copyList(s.list),
		Visible:       s.copyList(visible),
		Unread:        s.unread,
		ShowAll:       s.showAll,
		LastSync:      s.lastSync,
	}
}

func (s *Session) copyList(list []*model.DeliveredNotification) []model.DeliveredNotification {
	out := make([]model.DeliveredNotification, len(list))
	for i, n := range list {
		out[i] = *n
		if out[i].Avatar == nil && s.cfg.DefaultAvatar != "" {
			avatar := s.cfg.DefaultAvatar
			out[i].Avatar = &avatar
		}
	}
	return out
}

func (s *Session) notify(v View) {
	if s.OnUpdate != nil {
		s.OnUpdate(v)
	}
}

func (s *Session) observeTick(result string) {
	if s.metrics != nil {
		s.metrics.PollTicks.WithLabelValues(result).Inc()
	}
}
