package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cms_mirror/internal/domain"
)

type TagStore struct {
	db *sqlx.DB
}

func NewTagStore(db *sqlx.DB) *TagStore {
	return &TagStore{db: db}
}

// Upsert creates or updates the tag keyed by its external ID and returns the
// local ID.
func (s *TagStore) Upsert(ctx context.Context, tag *domain.Tag) (string, bool, error) {
	query := `
		INSERT INTO tag (id, external_id, name, slug)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			updated_at = now()
		RETURNING id, (xmax = 0) AS inserted`

	var (
		id       string
		inserted bool
	)
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		uuid.NewString(),
		tag.ExternalID,
		tag.Name,
		tag.Slug,
	).Scan(&id, &inserted)
	if err != nil {
		return "", false, err
	}
	return id, inserted, nil
}

// DeleteByExternalID removes the tag. Junction rows in every kind's table
// cascade.
func (s *TagStore) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM tag WHERE external_id = $1",
		externalID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LookupByExternalIDs returns the known tags among ids keyed by external ID.
func (s *TagStore) LookupByExternalIDs(ctx context.Context, ids []string) (map[string]domain.Tag, error) {
	result := make(map[string]domain.Tag, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var tags []domain.Tag
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &tags,
		"SELECT id, external_id, name, slug FROM tag WHERE external_id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		result[t.ExternalID] = t
	}
	return result, nil
}

func (s *TagStore) All(ctx context.Context) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	err := s.db.SelectContext(ctx, &tags,
		"SELECT id, external_id, name, slug FROM tag ORDER BY name, external_id",
	)
	return tags, err
}

// PruneExcept deletes every tag whose external ID is not in keep and
// returns the external IDs it removed.
func (s *TagStore) PruneExcept(ctx context.Context, keep []string) ([]string, error) {
	if keep == nil {
		keep = []string{}
	}
	removed := []string{}
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &removed,
		"DELETE FROM tag WHERE NOT (external_id = ANY($1)) RETURNING external_id",
		pq.Array(keep),
	)
	if err != nil {
		return nil, err
	}
	return removed, nil
}
