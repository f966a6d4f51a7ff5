package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
)

type deliveredRepository struct {
	BaseRepository
}

func NewDeliveredRepository(base BaseRepository) repository.DeliveredNotificationRepository {
	return &deliveredRepository{base}
}

const deliveredColumns = `id, heading, description, role, readed, avatar, created_at`

func (r *deliveredRepository) Create(ctx context.Context, n *model.DeliveredNotification) error {
	query := `
		INSERT INTO notifications (
			heading, description, role, readed, avatar, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		n.Heading,
		n.Description,
		n.Role,
		n.Readed,
		n.Avatar,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *deliveredRepository) Get(ctx context.Context, id int64) (*model.DeliveredNotification, error) {
	query := `SELECT ` + deliveredColumns + ` FROM notifications WHERE id = $1`

	var n model.DeliveredNotification
	if err := sqlx.GetContext(ctx, r.db, &n, query, id); err != nil {
		return nil, notFound(err, "notification")
	}
	return &n, nil
}

func (r *deliveredRepository) List(ctx context.Context) ([]*model.DeliveredNotification, error) {
	query := `SELECT ` + deliveredColumns + ` FROM notifications ORDER BY created_at DESC, id DESC`

	var notifications []*model.DeliveredNotification
	if err := sqlx.SelectContext(ctx, r.db, &notifications, query); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *deliveredRepository) ListByRole(ctx context.Context, role string) ([]*model.DeliveredNotification, error) {
	query := `SELECT ` + deliveredColumns + ` FROM notifications WHERE role = $1 ORDER BY created_at DESC, id DESC`

	var notifications []*model.DeliveredNotification
	if err := sqlx.SelectContext(ctx, r.db, &notifications, query, role); err != nil {
		return nil, fmt.Errorf("failed to list notifications for role: %w", err)
	}
	return notifications, nil
}

func (r *deliveredRepository) CountUnread(ctx context.Context, role string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE role = $1 AND readed = 0`

	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, role); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead is idempotent: updating an already-read row still matches it.
func (r *deliveredRepository) MarkRead(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET readed = 1 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectOneRow(result, "notification")
}

func (r *deliveredRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM notifications WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return expectOneRow(result, "notification")
}
