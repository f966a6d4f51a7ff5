package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kbmc/portal-api/internal/repository"
)

// Store hands out repositories bound either to the pool or to a transaction.
type Store struct {
	db     *sqlx.DB
	base   BaseRepository
	tables map[string]string
}

func NewStore(db *sqlx.DB, entityTables map[string]string) *Store {
	return &Store{
		db:     db,
		base:   NewBaseRepository(db),
		tables: entityTables,
	}
}

func (s *Store) Pending() repository.PendingNotificationRepository {
	return NewPendingRepository(s.base)
}

func (s *Store) Delivered() repository.DeliveredNotificationRepository {
	return NewDeliveredRepository(s.base)
}

func (s *Store) Entities() repository.EntityStatusRepository {
	return NewEntityRepository(s.base, s.tables)
}

func (s *Store) Outbox() repository.OutboxRepository {
	return NewOutboxRepository(s.base)
}

// WithTx executes fn within a transaction. Calls on a transaction-bound Store
// reuse the open transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txStore := &Store{base: NewBaseRepository(tx), tables: s.tables}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
