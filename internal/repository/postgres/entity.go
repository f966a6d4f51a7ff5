package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/repository"
)

// entityRepository writes the status column of externally owned entity
// tables. Only kinds present in tables can be addressed; kinds match
// regardless of case.
type entityRepository struct {
	BaseRepository
	tables map[string]string
}

func NewEntityRepository(base BaseRepository, tables map[string]string) repository.EntityStatusRepository {
	lowered := make(map[string]string, len(tables))
	for kind, table := range tables {
		lowered[strings.ToLower(kind)] = table
	}
	return &entityRepository{BaseRepository: base, tables: lowered}
}

func (r *entityRepository) SetStatus(ctx context.Context, kind string, id int64, status model.EntityStatus) error {
	table, ok := r.tables[strings.ToLower(kind)]
	if !ok {
		return fmt.Errorf("entity kind %q: %w", kind, repository.ErrNotFound)
	}

	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2`, pq.QuoteIdentifier(table))

	result, err := r.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update %s status: %w", kind, err)
	}
	return expectOneRow(result, kind)
}

func (r *entityRepository) Kinds() []string {
	kinds := make([]string, 0, len(r.tables))
	for k := range r.tables {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
