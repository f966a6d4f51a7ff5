package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kbmc/portal-api/internal/model"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// PendingNotificationRepository stores records awaiting a decision.
	PendingNotificationRepository interface {
		Create(ctx context.Context, p *model.PendingNotification) error
		Get(ctx context.Context, id int64) (*model.PendingNotification, error)
		List(ctx context.Context) ([]*model.PendingNotification, error)
		SetState(ctx context.Context, id int64, state model.DecisionState) error
		SetRemark(ctx context.Context, id int64, remark string, state model.DecisionState) error
		Delete(ctx context.Context, id int64) error
	}

	// DeliveredNotificationRepository stores role-addressed notifications.
	DeliveredNotificationRepository interface {
		Create(ctx context.Context, n *model.DeliveredNotification) error
		Get(ctx context.Context, id int64) (*model.DeliveredNotification, error)
		List(ctx context.Context) ([]*model.DeliveredNotification, error)
		ListByRole(ctx context.Context, role string) ([]*model.DeliveredNotification, error)
		CountUnread(ctx context.Context, role string) (int, error)
		MarkRead(ctx context.Context, id int64) error
		Delete(ctx context.Context, id int64) error
	}

	// EntityStatusRepository updates the status column of submitted entities.
	EntityStatusRepository interface {
		SetStatus(ctx context.Context, kind string, id int64, status model.EntityStatus) error
		Kinds() []string
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Store groups the repositories the approval workflow writes to so they
	// can share a transaction.
	Store interface {
		Pending() PendingNotificationRepository
		Delivered() DeliveredNotificationRepository
		Entities() EntityStatusRepository
		Outbox() OutboxRepository
		// WithTx runs fn against a Store bound to one transaction.
		WithTx(ctx context.Context, fn func(Store) error) error
	}
)
