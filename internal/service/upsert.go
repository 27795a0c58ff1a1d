package service

import (
	"context"
	"fmt"
	"log/slog"

	"cms_mirror/internal/domain"
	"cms_mirror/internal/mapping"
)

// Outcome is the effect of applying one CMS item.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCreated
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	}
	return "skipped"
}

// Upserter writes single CMS items into the mirror.
type Upserter struct {
	entities  EntityStore
	tags      TagStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
}

func NewUpserter(
	entities EntityStore,
	tags TagStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *Upserter {
	return &Upserter{
		entities:  entities,
		tags:      tags,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("component", "upserter"),
	}
}

// Apply maps item and creates or updates the entity, replacing its tag set.
// Items that cannot be mapped are skipped without error. lookup may be nil,
// in which case the item's tag references are resolved against the store.
func (u *Upserter) Apply(ctx context.Context, kind domain.Kind, item domain.SourceItem, lookup map[string]domain.Tag) (Outcome, error) {
	entity, err := mapping.MapEntity(kind, item)
	if err != nil {
		if mapping.IsDataQuality(err) {
			u.logger.Warn("skipping item",
				"kind", kind,
				"external_id", item.ExternalID,
				"error", err,
			)
			return OutcomeSkipped, nil
		}
		return OutcomeSkipped, err
	}

	if lookup == nil && len(entity.TagRefs) > 0 {
		lookup, err = u.tags.LookupByExternalIDs(ctx, entity.TagRefs)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("lookup tags: %w", err)
		}
	}
	entity.Tags = mapping.ResolveTags(entity.TagRefs, lookup)
	if dropped := len(entity.TagRefs) - len(entity.Tags); dropped > 0 {
		u.logger.Debug("unresolved tag references",
			"kind", kind,
			"external_id", item.ExternalID,
			"dropped", dropped,
		)
	}

	tagIDs := make([]string, len(entity.Tags))
	for i, t := range entity.Tags {
		tagIDs[i] = t.ID
	}

	var created bool
	err = u.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		id, isNew, err := u.entities.Upsert(txCtx, &entity)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", kind, err)
		}
		entity.ID = id
		created = isNew

		if err := u.entities.ReplaceTags(txCtx, kind, id, tagIDs); err != nil {
			return fmt.Errorf("replace tags: %w", err)
		}
		return nil
	})
	if err != nil {
		return OutcomeSkipped, err
	}

	action, outcome := domain.ActionUpdate, OutcomeUpdated
	if created {
		action, outcome = domain.ActionCreate, OutcomeCreated
	}
	u.publish(ctx, &domain.Change{Action: action, Kind: kind, ExternalID: entity.ExternalID, Entity: &entity})

	return outcome, nil
}

// ApplyTag creates or updates a tag from an item of the tag collection.
func (u *Upserter) ApplyTag(ctx context.Context, item domain.SourceItem) (Outcome, error) {
	tag, err := mapping.MapTag(item)
	if err != nil {
		if mapping.IsDataQuality(err) {
			u.logger.Warn("skipping tag", "external_id", item.ExternalID, "error", err)
			return OutcomeSkipped, nil
		}
		return OutcomeSkipped, err
	}

	id, created, err := u.tags.Upsert(ctx, &tag)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("upsert tag: %w", err)
	}
	tag.ID = id

	action, outcome := domain.ActionUpdate, OutcomeUpdated
	if created {
		action, outcome = domain.ActionCreate, OutcomeCreated
	}
	u.publish(ctx, &domain.Change{Action: action, Kind: domain.KindTag, ExternalID: tag.ExternalID, Tag: &tag})

	return outcome, nil
}

// DeleteEntity removes an entity and its junction rows.
func (u *Upserter) DeleteEntity(ctx context.Context, kind domain.Kind, externalID string) (bool, error) {
	deleted, err := u.entities.DeleteByExternalID(ctx, kind, externalID)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", kind, err)
	}
	if deleted {
		u.publish(ctx, &domain.Change{Action: domain.ActionDelete, Kind: kind, ExternalID: externalID})
	}
	return deleted, nil
}

// DeleteTag removes a tag; its junction rows in every kind go with it.
func (u *Upserter) DeleteTag(ctx context.Context, externalID string) (bool, error) {
	deleted, err := u.tags.DeleteByExternalID(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("delete tag: %w", err)
	}
	if deleted {
		u.publish(ctx, &domain.Change{Action: domain.ActionDelete, Kind: domain.KindTag, ExternalID: externalID})
	}
	return deleted, nil
}

// Prune deletes every item of kind whose external ID is not in keep and
// publishes a delete for each. It returns how many were removed.
func (u *Upserter) Prune(ctx context.Context, kind domain.Kind, keep []string) (int, error) {
	var (
		removed []string
		err     error
	)
	if kind == domain.KindTag {
		removed, err = u.tags.PruneExcept(ctx, keep)
	} else {
		removed, err = u.entities.PruneExcept(ctx, kind, keep)
	}
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", kind, err)
	}
	for _, externalID := range removed {
		u.publish(ctx, &domain.Change{Action: domain.ActionDelete, Kind: kind, ExternalID: externalID})
	}
	return len(removed), nil
}

func (u *Upserter) publish(ctx context.Context, change *domain.Change) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, change); err != nil {
		u.logger.Warn("failed to publish change",
			"kind", change.Kind,
			"external_id", change.ExternalID,
			"action", change.Action,
			"error", err,
		)
	}
}
