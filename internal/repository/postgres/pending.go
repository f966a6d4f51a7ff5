package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
)

type pendingRepository struct {
	BaseRepository
}

func NewPendingRepository(base BaseRepository) repository.PendingNotificationRepository {
	return &pendingRepository{base}
}

const pendingColumns = `id, new_id, name, role, description, date, time, remark, state, created_at`

func (r *pendingRepository) Create(ctx context.Context, p *model.PendingNotification) error {
	query := `
		INSERT INTO admin_notifications (
			new_id, name, role, description, date, time, remark, state, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id
	`
	if p.State == "" {
		p.State = model.DecisionOpen
	}

	err := r.db.QueryRowxContext(ctx, query,
		p.TargetEntityID,
		p.TargetEntityKind,
		p.Role,
		p.Description,
		p.Date,
		p.Time,
		p.Remark,
		p.State,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create pending notification: %w", err)
	}
	return nil
}

func (r *pendingRepository) Get(ctx context.Context, id int64) (*model.PendingNotification, error) {
	query := `SELECT ` + pendingColumns + ` FROM admin_notifications WHERE id = $1`

	var p model.PendingNotification
	if err := sqlx.GetContext(ctx, r.db, &p, query, id); err != nil {
		return nil, notFound(err, "pending notification")
	}
	return &p, nil
}

func (r *pendingRepository) List(ctx context.Context) ([]*model.PendingNotification, error) {
	query := `SELECT ` + pendingColumns + ` FROM admin_notifications ORDER BY created_at DESC, id DESC`

	var pending []*model.PendingNotification
	if err := sqlx.SelectContext(ctx, r.db, &pending, query); err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return pending, nil
}

func (r *pendingRepository) SetState(ctx context.Context, id int64, state model.DecisionState) error {
	query := `UPDATE admin_notifications SET state = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("failed to update pending state: %w", err)
	}
	return expectOneRow(result, "pending notification")
}

func (r *pendingRepository) SetRemark(ctx context.Context, id int64, remark string, state model.DecisionState) error {
	query := `UPDATE admin_notifications SET remark = $1, state = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, remark, state, id)
	if err != nil {
		return fmt.Errorf("failed to update remark: %w", err)
	}
	return expectOneRow(result, "pending notification")
}

func (r *pendingRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM admin_notifications WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending notification: %w", err)
	}
	return expectOneRow(result, "pending notification")
}
