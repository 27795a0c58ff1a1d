package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cms_mirror/internal/domain"
)

type EntityStore struct {
	db *sqlx.DB
}

func NewEntityStore(db *sqlx.DB) *EntityStore {
	return &EntityStore{db: db}
}

// Upsert creates or updates the entity keyed by its external ID. A fresh
// local ID is only used when the row does not exist yet; a concurrent insert
// of the same external ID resolves to an update through the unique index.
func (s *EntityStore) Upsert(ctx context.Context, e *domain.Entity) (string, bool, error) {
	t, err := tableFor(e.Kind)
	if err != nil {
		return "", false, err
	}

	args, err := t.args(uuid.NewString(), e)
	if err != nil {
		return "", false, err
	}

	var (
		id       string
		inserted bool
	)
	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, t.upsertSQL, args...).Scan(&id, &inserted)
	if err != nil {
		return "", false, err
	}
	return id, inserted, nil
}

// ReplaceTags makes the entity's junction rows exactly tagIDs.
func (s *EntityStore) ReplaceTags(ctx context.Context, kind domain.Kind, entityID string, tagIDs []string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	exec := GetExecutor(ctx, s.db)

	_, err = exec.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = $1", t.junction, t.fk),
		entityID,
	)
	if err != nil {
		return fmt.Errorf("delete junction rows: %w", err)
	}

	if len(tagIDs) == 0 {
		return nil
	}

	_, err = exec.ExecContext(ctx,
		fmt.Sprintf(`
			INSERT INTO %s (%s, tag_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`, t.junction, t.fk),
		entityID, pq.Array(tagIDs),
	)
	if err != nil {
		return fmt.Errorf("insert junction rows: %w", err)
	}
	return nil
}

// DeleteByExternalID removes the entity; junction rows go with it.
func (s *EntityStore) DeleteByExternalID(ctx context.Context, kind domain.Kind, externalID string) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE external_id = $1", t.name),
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

// PruneExcept deletes every entity of kind whose external ID is not in keep
// and returns the external IDs it removed.
func (s *EntityStore) PruneExcept(ctx context.Context, kind domain.Kind, keep []string) ([]string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if keep == nil {
		keep = []string{}
	}
	removed := []string{}
	err = sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &removed,
		fmt.Sprintf("DELETE FROM %s WHERE NOT (external_id = ANY($1)) RETURNING external_id", t.name),
		pq.Array(keep),
	)
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// List returns entities of kind carrying any of tagIDs (all when empty),
// with their tags, in the kind's display order. Entities and tags are read
// from one snapshot.
func (s *EntityStore) List(ctx context.Context, kind domain.Kind, tagIDs []string) ([]domain.Entity, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := t.selectSQL
	var args []any
	if len(tagIDs) > 0 {
		query += fmt.Sprintf(`
			WHERE EXISTS (
				SELECT 1 FROM %s j
				INNER JOIN tag tg ON tg.id = j.tag_id
				WHERE j.%s = e.id
				  AND (tg.id::text = ANY($1) OR tg.external_id = ANY($1))
			)`, t.junction, t.fk)
		args = append(args, pq.Array(tagIDs))
	}
	query += " ORDER BY " + t.orderBy

	var entities []domain.Entity
	err = readSnapshot(ctx, s.db, func(ctx context.Context) error {
		q := GetExecutor(ctx, s.db)
		var rows []entityRow
		if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
			return fmt.Errorf("select %s: %w", t.name, err)
		}
		entities = make([]domain.Entity, 0, len(rows))
		for _, r := range rows {
			entities = append(entities, r.toEntity(kind))
		}
		return attachTags(ctx, q, t, entities)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// GetBySlug returns the entity with slug or domain.ErrNotFound.
func (s *EntityStore) GetBySlug(ctx context.Context, kind domain.Kind, slug string) (*domain.Entity, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var entity *domain.Entity
	err = readSnapshot(ctx, s.db, func(ctx context.Context) error {
		q := GetExecutor(ctx, s.db)
		var row entityRow
		err := sqlx.GetContext(ctx, q, &row, t.selectSQL+" WHERE e.slug = $1 LIMIT 1", slug)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("select %s: %w", t.name, err)
		}
		list := []domain.Entity{row.toEntity(kind)}
		if err := attachTags(ctx, q, t, list); err != nil {
			return err
		}
		entity = &list[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

type taggedRow struct {
	EntityID string `db:"entity_id"`
	domain.Tag
}

func attachTags(ctx context.Context, q sqlx.QueryerContext, t *table, entities []domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	ids := make([]string, len(entities))
	index := make(map[string]int, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
		index[e.ID] = i
	}

	var rows []taggedRow
	err := sqlx.SelectContext(ctx, q, &rows, fmt.Sprintf(`
		SELECT j.%s AS entity_id, tg.id, tg.external_id, tg.name, tg.slug
		FROM %s j
		INNER JOIN tag tg ON tg.id = j.tag_id
		WHERE j.%s = ANY($1::uuid[])
		ORDER BY tg.name`, t.fk, t.junction, t.fk),
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("select %s tags: %w", t.name, err)
	}

	for _, r := range rows {
		if i, ok := index[r.EntityID]; ok {
			entities[i].Tags = append(entities[i].Tags, r.Tag)
		}
	}
	return nil
}
