package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kbmc/portal-api/internal/config"
	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
	"github.com/kbmc/portal-api/internal/service/event"
	apperrors "github.com/kbmc/portal-api/pkg/errors"
	"github.com/kbmc/portal-api/pkg/logger"
	"github.com/kbmc/portal-api/pkg/metrics"
)

const (
	outcomeApprove    = "approve"
	outcomeDisapprove = "disapprove"
	outcomeRemark     = "remark"
)

// Servicer is the approval workflow engine.
type Servicer interface {
	ListPending(ctx context.Context) ([]*model.PendingNotification, error)
	GetPending(ctx context.Context, id int64) (*model.PendingNotification, error)
	CreatePending(ctx context.Context, p *model.PendingNotification) error
	Approve(ctx context.Context, pendingID int64) (*model.DeliveredNotification, error)
	Disapprove(ctx context.Context, pendingID int64) (*model.PendingNotification, error)
	SubmitRemark(ctx context.Context, pendingID int64, remark string) (*model.DeliveredNotification, error)

	SetEntityStatus(ctx context.Context, kind string, entityID int64, status model.EntityStatus) error
	AttachRemark(ctx context.Context, pendingID int64, remark string) error
	DeletePending(ctx context.Context, pendingID int64) error
	EntityKinds() []string
}

// UnreadInvalidator is told when a notification for role was written.
type UnreadInvalidator interface {
	Invalidate(role string)
}

type Service struct {
	store   repository.Store
	events  event.Emitter
	cfg     config.ApprovalConfig
	unread  UnreadInvalidator
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(
	store repository.Store,
	events event.Emitter,
	cfg config.ApprovalConfig,
	unread UnreadInvalidator,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if cfg.ApprovedTemplate == "" {
		cfg.ApprovedTemplate = "%s has been successfully approved."
	}
	if cfg.RejectedTemplate == "" {
		cfg.RejectedTemplate = "%s has been rejected. Remark: %s"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:   store,
		events:  events,
		cfg:     cfg,
		unread:  unread,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *Service) ListPending(ctx context.Context) ([]*model.PendingNotification, error) {
	list, err := s.store.Pending().List(ctx)
	s.metrics.ObserveDB("list_pending", err)
	if err != nil {
		return nil, apperrors.NewPersistence("list pending notifications", err)
	}
	return list, nil
}

func (s *Service) GetPending(ctx context.Context, id int64) (*model.PendingNotification, error) {
	p, err := s.store.Pending().Get(ctx, id)
	s.metrics.ObserveDB("get_pending", err)
	if err != nil {
		return nil, storeError(err, "pending notification", "get pending notification")
	}
	return p, nil
}

// CreatePending records a submission awaiting a decision. The submission time
// is stamped by the server.
func (s *Service) CreatePending(ctx context.Context, p *model.PendingNotification) error {
	if err := s.validatePending(p); err != nil {
		return err
	}

	p.ID = 0
	p.Remark = nil
	p.State = model.DecisionOpen
	p.Stamp(s.now().UTC())

	err := s.store.Pending().Create(ctx, p)
	s.metrics.ObserveDB("create_pending", err)
	if err != nil {
		return apperrors.NewPersistence("create pending notification", err)
	}

	s.log.WithContext(ctx).Info("pending notification created",
		"pending_id", p.ID, "entity_kind", p.TargetEntityKind, "entity_id", p.TargetEntityID, "role", p.Role)
	return nil
}

// Approve marks the referenced entity approved, removes the pending record and
// notifies its role.
func (s *Service) Approve(ctx context.Context, pendingID int64) (*model.DeliveredNotification, error) {
	p, err := s.GetPending(ctx, pendingID)
	if err != nil {
		s.metrics.ObserveDecision(outcomeApprove, err)
		return nil, err
	}

	n := &model.DeliveredNotification{
		Heading:     model.HeadingApproved,
		Description: fmt.Sprintf(s.cfg.ApprovedTemplate, p.Description),
		Role:        p.Role,
	}
	ev := s.decisionEvent(p, model.EntityStatusApproved)

	entityStep := func(st repository.Store) error {
		return s.setEntityStatus(ctx, st, p.TargetEntityKind, p.TargetEntityID, model.EntityStatusApproved)
	}
	notifyStep := func(st repository.Store) error {
		if err := st.Pending().Delete(ctx, p.ID); err != nil {
			return storeError(err, "pending notification", "delete pending notification")
		}
		if err := s.insertNotification(ctx, st, n); err != nil {
			return err
		}
		ev.NotificationID = n.ID
		return s.emit(ctx, st, model.EventPendingApproved, ev)
	}

	err = s.run(ctx, outcomeApprove, entityStep, notifyStep)
	s.metrics.ObserveDecision(outcomeApprove, err)
	if err != nil {
		s.log.WithContext(ctx).Error(err, "approve failed", "pending_id", pendingID)
		return nil, err
	}

	s.delivered(n)
	s.log.WithContext(ctx).Info("pending notification approved",
		"pending_id", p.ID, "notification_id", n.ID, "role", p.Role)
	return n, nil
}

// Disapprove is the first half of a rejection: the entity is marked rejected
// and the pending record waits for a remark. Nothing is delivered yet.
func (s *Service) Disapprove(ctx context.Context, pendingID int64) (*model.PendingNotification, error) {
	p, err := s.GetPending(ctx, pendingID)
	if err != nil {
		s.metrics.ObserveDecision(outcomeDisapprove, err)
		return nil, err
	}

	ev := s.decisionEvent(p, model.EntityStatusRejected)
	ev.State = model.DecisionAwaitingRemark

	entityStep := func(st repository.Store) error {
		return s.setEntityStatus(ctx, st, p.TargetEntityKind, p.TargetEntityID, model.EntityStatusRejected)
	}
	stateStep := func(st repository.Store) error {
		if err := st.Pending().SetState(ctx, p.ID, model.DecisionAwaitingRemark); err != nil {
			return storeError(err, "pending notification", "update pending notification")
		}
		return s.emit(ctx, st, model.EventPendingDisapproved, ev)
	}

	err = s.run(ctx, outcomeDisapprove, entityStep, stateStep)
	s.metrics.ObserveDecision(outcomeDisapprove, err)
	if err != nil {
		s.log.WithContext(ctx).Error(err, "disapprove failed", "pending_id", pendingID)
		return nil, err
	}

	p.State = model.DecisionAwaitingRemark
	s.log.WithContext(ctx).Info("pending notification disapproved", "pending_id", p.ID, "role", p.Role)
	return p, nil
}

// SubmitRemark completes a rejection started by Disapprove. The pending record
// is kept in state rejected with the remark attached.
func (s *Service) SubmitRemark(ctx context.Context, pendingID int64, remark string) (*model.DeliveredNotification, error) {
	remark = strings.TrimSpace(remark)
	if remark == "" {
		err := apperrors.NewBadRequest("remark is required", nil)
		s.metrics.ObserveDecision(outcomeRemark, err)
		return nil, err
	}

	p, err := s.store.Pending().Get(ctx, pendingID)
	s.metrics.ObserveDB("get_pending", err)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		err = apperrors.NewInvalidState(fmt.Sprintf("pending notification %d no longer exists", pendingID))
	case err != nil:
		err = apperrors.NewPersistence("get pending notification", err)
	case p.State != model.DecisionAwaitingRemark:
		err = apperrors.NewInvalidState(fmt.Sprintf("pending notification %d has not been disapproved", pendingID))
	}
	if err != nil {
		s.metrics.ObserveDecision(outcomeRemark, err)
		return nil, err
	}

	n := &model.DeliveredNotification{
		Heading:     model.HeadingRejected,
		Description: fmt.Sprintf(s.cfg.RejectedTemplate, p.Description, remark),
		Role:        p.Role,
	}
	ev := s.decisionEvent(p, model.EntityStatusRejected)
	ev.State = model.DecisionRejected
	ev.Remark = remark

	remarkStep := func(st repository.Store) error {
		if err := st.Pending().SetRemark(ctx, p.ID, remark, model.DecisionRejected); err != nil {
			return storeError(err, "pending notification", "attach remark")
		}
		return nil
	}
	notifyStep := func(st repository.Store) error {
		if err := s.insertNotification(ctx, st, n); err != nil {
			return err
		}
		ev.NotificationID = n.ID
		return s.emit(ctx, st, model.EventPendingRejected, ev)
	}

	err = s.run(ctx, outcomeRemark, remarkStep, notifyStep)
	s.metrics.ObserveDecision(outcomeRemark, err)
	if err != nil {
		s.log.WithContext(ctx).Error(err, "submit remark failed", "pending_id", pendingID)
		return nil, err
	}

	s.delivered(n)
	s.log.WithContext(ctx).Info("pending notification rejected",
		"pending_id", p.ID, "notification_id", n.ID, "role", p.Role)
	return n, nil
}

// SetEntityStatus updates an entity directly, outside any pending record.
func (s *Service) SetEntityStatus(ctx context.Context, kind string, entityID int64, status model.EntityStatus) error {
	return s.setEntityStatus(ctx, s.store, kind, entityID, status)
}

// AttachRemark stores a remark on a pending record without changing its state.
func (s *Service) AttachRemark(ctx context.Context, pendingID int64, remark string) error {
	p, err := s.GetPending(ctx, pendingID)
	if err != nil {
		return err
	}
	err = s.store.Pending().SetRemark(ctx, pendingID, remark, p.State)
	s.metrics.ObserveDB("attach_remark", err)
	if err != nil {
		return storeError(err, "pending notification", "attach remark")
	}
	return nil
}

func (s *Service) DeletePending(ctx context.Context, pendingID int64) error {
	err := s.store.Pending().Delete(ctx, pendingID)
	s.metrics.ObserveDB("delete_pending", err)
	if err != nil {
		return storeError(err, "pending notification", "delete pending notification")
	}
	return nil
}

func (s *Service) EntityKinds() []string {
	return s.store.Entities().Kinds()
}

// run executes the two halves of a decision. In atomic mode both share one
// transaction. Otherwise they are independent writes and a failure of the
// second is reported as a partial failure.
func (s *Service) run(ctx context.Context, outcome string, first, second func(repository.Store) error) error {
	if s.cfg.Atomic {
		err := s.store.WithTx(ctx, func(tx repository.Store) error {
			if err := first(tx); err != nil {
				return err
			}
			return second(tx)
		})
		var appErr *apperrors.AppError
		if err != nil && !errors.As(err, &appErr) {
			return apperrors.NewPersistence("commit decision", err)
		}
		return err
	}

	if err := first(s.store); err != nil {
		return err
	}
	if err := second(s.store); err != nil {
		if s.metrics != nil {
			s.metrics.PartialFailures.WithLabelValues(outcome).Inc()
		}
		return apperrors.NewPartialFailure(fmt.Sprintf("%s: first write applied, second failed", outcome), err)
	}
	return nil
}

func (s *Service) setEntityStatus(ctx context.Context, st repository.Store, kind string, id int64, status model.EntityStatus) error {
	err := st.Entities().SetStatus(ctx, kind, id, status)
	s.metrics.ObserveDB("set_entity_status", err)
	if err != nil {
		return storeError(err, fmt.Sprintf("%s %d", kind, id), "update entity status")
	}
	return nil
}

func (s *Service) insertNotification(ctx context.Context, st repository.Store, n *model.DeliveredNotification) error {
	n.Readed = model.Unread
	n.CreatedAt = s.now().UTC()
	err := st.Delivered().Create(ctx, n)
	s.metrics.ObserveDB("create_notification", err)
	if err != nil {
		return apperrors.NewPersistence("create notification", err)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, st repository.Store, eventType string, ev model.DecisionEvent) error {
	if s.events == nil {
		return nil
	}
	if _, err := s.events.Emit(ctx, st.Outbox(), eventType, ev); err != nil {
		return apperrors.NewPersistence("record event", err)
	}
	return nil
}

func (s *Service) delivered(n *model.DeliveredNotification) {
	if s.metrics != nil {
		s.metrics.NotificationsCreated.WithLabelValues(n.Heading).Inc()
	}
	if s.unread != nil {
		s.unread.Invalidate(n.Role)
	}
}

func (s *Service) decisionEvent(p *model.PendingNotification, status model.EntityStatus) model.DecisionEvent {
	return model.DecisionEvent{
		PendingID:    p.ID,
		EntityKind:   p.TargetEntityKind,
		EntityID:     p.TargetEntityID,
		Role:         p.Role,
		EntityStatus: status,
		OccurredAt:   s.now().UTC(),
	}
}

func (s *Service) validatePending(p *model.PendingNotification) error {
	switch {
	case p == nil:
		return apperrors.NewBadRequest("pending notification is required", nil)
	case strings.TrimSpace(p.Role) == "":
		return apperrors.NewBadRequest("role is required", nil)
	case strings.TrimSpace(p.Description) == "":
		return apperrors.NewBadRequest("description is required", nil)
	}
	for _, k := range s.store.Entities().Kinds() {
		if strings.EqualFold(k, p.TargetEntityKind) {
			p.TargetEntityKind = k
			return nil
		}
	}
	return apperrors.NewBadRequest(fmt.Sprintf("unknown entity kind %q", p.TargetEntityKind), nil)
}

func storeError(err error, resource, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return apperrors.NewPersistence(op, err)
}
