package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"cms_mirror/internal/domain"
)

const syncStateColumns = `id, kind, last_synced_at, last_count, total_synced`

// SyncStateStore keeps one row per kind describing its last reconciliation.
type SyncStateStore struct {
	db *sqlx.DB
}

func NewSyncStateStore(db *sqlx.DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

// Record stores a finished reconciliation of kind that processed count
// items. The running total is incremented in place, so concurrent runs of
// the same kind never lose each other's counts.
func (s *SyncStateStore) Record(ctx context.Context, kind domain.Kind, count int64, at time.Time) (*domain.SyncState, error) {
	var state domain.SyncState
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &state, `
		INSERT INTO sync_state (kind, last_synced_at, last_count, total_synced)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (kind) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_count = EXCLUDED.last_count,
			total_synced = sync_state.total_synced + EXCLUDED.last_count
		RETURNING `+syncStateColumns,
		kind, at, count,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// List returns every recorded kind. Kinds never reconciled are absent.
func (s *SyncStateStore) List(ctx context.Context) ([]domain.SyncState, error) {
	states := []domain.SyncState{}
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &states,
		`SELECT `+syncStateColumns+` FROM sync_state ORDER BY kind`)
	if err != nil {
		return nil, err
	}
	return states, nil
}
