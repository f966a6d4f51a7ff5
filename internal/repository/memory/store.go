// Package memory is a process-local Store used for development mode and tests.
// WithTx does not isolate or roll back; it only serializes fn.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
)

type Option func(*Store)

// WithAutoCreateEntities makes SetStatus create unknown entity ids of a known kind.
func WithAutoCreateEntities() Option {
	return func(s *Store) { s.autoCreate = true }
}

type Store struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	pending    map[int64]model.PendingNotification
	delivered  map[int64]model.DeliveredNotification
	entities   map[string]map[int64]model.EntityStatus
	outbox     []model.OutboxEvent
	lastID     int64
	autoCreate bool
}

// NewStore creates an empty store that accepts the given entity kinds.
// Kinds are matched regardless of case.
func NewStore(kinds []string, opts ...Option) *Store {
	s := &Store{
		pending:   make(map[int64]model.PendingNotification),
		delivered: make(map[int64]model.DeliveredNotification),
		entities:  make(map[string]map[int64]model.EntityStatus),
	}
	for _, k := range kinds {
		s.entities[strings.ToLower(k)] = make(map[int64]model.EntityStatus)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddEntity seeds an entity row.
func (s *Store) AddEntity(kind string, id int64, status model.EntityStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind = strings.ToLower(kind)
	if _, ok := s.entities[kind]; !ok {
		s.entities[kind] = make(map[int64]model.EntityStatus)
	}
	s.entities[kind][id] = status
}

// EntityStatus reads back an entity's status.
func (s *Store) EntityStatus(kind string, id int64) (model.EntityStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entities[strings.ToLower(kind)][id]
	return st, ok
}

// OutboxEvents returns a copy of every recorded outbox event.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.outbox...)
}

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

func (s *Store) Pending() repository.PendingNotificationRepository     { return &pendingRepo{s} }
func (s *Store) Delivered() repository.DeliveredNotificationRepository { return &deliveredRepo{s} }
func (s *Store) Entities() repository.EntityStatusRepository           { return &entityRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository                   { return &outboxRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

type pendingRepo struct{ s *Store }

func (r *pendingRepo) Create(_ context.Context, p *model.PendingNotification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.nextID()
	if p.State == "" {
		p.State = model.DecisionOpen
	}
	if p.CreatedAt.IsZero() {
		p.Stamp(time.Now().UTC())
	}
	r.s.pending[p.ID] = *p
	return nil
}

func (r *pendingRepo) Get(_ context.Context, id int64) (*model.PendingNotification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pending[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *pendingRepo) List(_ context.Context) ([]*model.PendingNotification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.PendingNotification, 0, len(r.s.pending))
	for _, p := range r.s.pending {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *pendingRepo) SetState(_ context.Context, id int64, state model.DecisionState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pending[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.State = state
	r.s.pending[id] = p
	return nil
}

func (r *pendingRepo) SetRemark(_ context.Context, id int64, remark string, state model.DecisionState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pending[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Remark = &remark
	p.State = state
	r.s.pending[id] = p
	return nil
}

func (r *pendingRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.pending[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.pending, id)
	return nil
}

type deliveredRepo struct{ s *Store }

func (r *deliveredRepo) Create(_ context.Context, n *model.DeliveredNotification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.nextID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.s.delivered[n.ID] = *n
	return nil
}

func (r *deliveredRepo) Get(_ context.Context, id int64) (*model.DeliveredNotification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.delivered[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (r *deliveredRepo) List(ctx context.Context) ([]*model.DeliveredNotification, error) {
	return r.list(func(*model.DeliveredNotification) bool { return true }), nil
}

func (r *deliveredRepo) ListByRole(_ context.Context, role string) ([]*model.DeliveredNotification, error) {
	return r.list(func(n *model.DeliveredNotification) bool { return n.Role == role }), nil
}

func (r *deliveredRepo) list(keep func(*model.DeliveredNotification) bool) []*model.DeliveredNotification {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.DeliveredNotification, 0, len(r.s.delivered))
	for _, n := range r.s.delivered {
		n := n
		if keep(&n) {
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *deliveredRepo) CountUnread(_ context.Context, role string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, n := range r.s.delivered {
		if n.Role == role && !n.Readed.IsRead() {
			count++
		}
	}
	return count, nil
}

func (r *deliveredRepo) MarkRead(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.delivered[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Readed = model.Read
	r.s.delivered[id] = n
	return nil
}

func (r *deliveredRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.delivered[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.delivered, id)
	return nil
}

type entityRepo struct{ s *Store }

func (r *entityRepo) SetStatus(_ context.Context, kind string, id int64, status model.EntityStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, ok := r.s.entities[strings.ToLower(kind)]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := rows[id]; !ok && !r.s.autoCreate {
		return repository.ErrNotFound
	}
	rows[id] = status
	return nil
}

func (r *entityRepo) Kinds() []string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kinds := make([]string, 0, len(r.s.entities))
	for k := range r.s.entities {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending
	r.s.outbox = append(r.s.outbox, *event)
	return nil
}

func (r *outboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.OutboxEvent
	for i := range r.s.outbox {
		if len(out) == limit {
			break
		}
		if r.s.outbox[i].Status == model.OutboxStatusPending {
			e := r.s.outbox[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.outbox {
		if r.s.outbox[i].ID != id {
			continue
		}
		now := time.Now()
		r.s.outbox[i].Status = status
		r.s.outbox[i].ErrorMessage = errorMessage
		r.s.outbox[i].UpdatedAt = now
		if status == model.OutboxStatusProcessed {
			r.s.outbox[i].ProcessedAt = &now
		}
		if status == model.OutboxStatusFailed {
			r.s.outbox[i].RetryCount++
		}
		return nil
	}
	return repository.ErrNotFound
}

func (r *outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.outbox[:0]
	var removed int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return removed, nil
}
