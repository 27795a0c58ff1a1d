package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"cms_mirror/internal/domain"
)

type EntityStore interface {
	Upsert(ctx context.Context, entity *domain.Entity) (string, bool, error)
	ReplaceTags(ctx context.Context, kind domain.Kind, entityID string, tagIDs []string) error
	DeleteByExternalID(ctx context.Context, kind domain.Kind, externalID string) (bool, error)
	PruneExcept(ctx context.Context, kind domain.Kind, keep []string) ([]string, error)
	List(ctx context.Context, kind domain.Kind, tagIDs []string) ([]domain.Entity, error)
	GetBySlug(ctx context.Context, kind domain.Kind, slug string) (*domain.Entity, error)
}

type TagStore interface {
	Upsert(ctx context.Context, tag *domain.Tag) (string, bool, error)
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
	LookupByExternalIDs(ctx context.Context, ids []string) (map[string]domain.Tag, error)
	All(ctx context.Context) ([]domain.Tag, error)
	PruneExcept(ctx context.Context, keep []string) ([]string, error)
}

type SyncStateStore interface {
	Record(ctx context.Context, kind domain.Kind, count int64, at time.Time) (*domain.SyncState, error)
	List(ctx context.Context) ([]domain.SyncState, error)
}

type Source interface {
	ListItems(ctx context.Context, collectionID string) ([]domain.SourceItem, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, change *domain.Change) error
	Close() error
}
