package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"cms_mirror/internal/domain"
	"cms_mirror/internal/mapping"
)

// Reader serves the mirror, falling back to live CMS reads when the store
// fails or has nothing for a kind.
type Reader struct {
	entities    EntityStore
	tags        TagStore
	syncState   SyncStateStore
	source      Source
	collections domain.Collections
	logger      *slog.Logger
}

func NewReader(
	entities EntityStore,
	tags TagStore,
	syncState SyncStateStore,
	source Source,
	collections domain.Collections,
	logger *slog.Logger,
) *Reader {
	return &Reader{
		entities:    entities,
		tags:        tags,
		syncState:   syncState,
		source:      source,
		collections: collections,
		logger:      logger.With("component", "reader"),
	}
}

// List returns entities matching q, kinds concatenated in canonical order.
func (r *Reader) List(ctx context.Context, q domain.Query) ([]domain.Entity, error) {
	kinds, err := queryKinds(q.Kinds)
	if err != nil {
		return nil, err
	}

	live := &liveTags{reader: r}
	result := []domain.Entity{}
	for _, kind := range kinds {
		entities, err := r.entities.List(ctx, kind, q.TagIDs)
		if err == nil && len(entities) > 0 {
			result = append(result, entities...)
			continue
		}
		if !r.hasCollection(kind) {
			// Nothing to fall back to: an unmirrored kind is simply empty.
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", kind, err)
			}
			continue
		}
		if err != nil {
			r.logger.Warn("store read failed, using live source", "kind", kind, "error", err)
		}

		entities, liveErr := r.liveList(ctx, kind, q.TagIDs, live)
		if liveErr != nil {
			return nil, fmt.Errorf("list %s: %w", kind, errors.Join(err, liveErr))
		}
		result = append(result, entities...)
	}
	return result, nil
}

// GetBySlug returns one entity or domain.ErrNotFound.
func (r *Reader) GetBySlug(ctx context.Context, kind domain.Kind, slug string) (*domain.Entity, error) {
	if !kind.IsEntity() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	entity, err := r.entities.GetBySlug(ctx, kind, slug)
	if err == nil {
		return entity, nil
	}
	if !r.hasCollection(kind) {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get %s %q: %w", kind, slug, err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		r.logger.Warn("store read failed, using live source", "kind", kind, "slug", slug, "error", err)
	}

	entities, liveErr := r.liveList(ctx, kind, nil, &liveTags{reader: r})
	if liveErr != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = nil
		}
		return nil, fmt.Errorf("get %s %q: %w", kind, slug, errors.Join(err, liveErr))
	}
	for i := range entities {
		if s := entities[i].Slug; s != nil && *s == slug {
			return &entities[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// Tags lists all tags by name.
func (r *Reader) Tags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := r.tags.All(ctx)
	if err == nil && len(tags) > 0 {
		return tags, nil
	}
	if err != nil {
		r.logger.Warn("store read failed, using live source", "kind", domain.KindTag, "error", err)
	}

	live, liveErr := (&liveTags{reader: r}).list(ctx)
	if liveErr != nil {
		return nil, fmt.Errorf("list tags: %w", errors.Join(err, liveErr))
	}
	return live, nil
}

// SyncStatus returns the last reconciliation of every kind.
func (r *Reader) SyncStatus(ctx context.Context) ([]domain.SyncState, error) {
	states, err := r.syncState.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sync state: %w", err)
	}
	return states, nil
}

func (r *Reader) hasCollection(kind domain.Kind) bool {
	_, ok := r.collections[kind]
	return ok
}

func (r *Reader) liveList(ctx context.Context, kind domain.Kind, tagIDs []string, tags *liveTags) ([]domain.Entity, error) {
	collectionID, ok := r.collections[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind, ErrCollectionNotConfigured)
	}

	items, err := r.source.ListItems(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s items: %w", kind, err)
	}

	lookup, err := tags.lookup(ctx)
	if err != nil {
		return nil, err
	}

	entities := make([]domain.Entity, 0, len(items))
	for _, item := range items {
		if !item.Published() {
			continue
		}
		entity, err := mapping.MapEntity(kind, item)
		if err != nil {
			continue
		}
		entity.Tags = mapping.ResolveTags(entity.TagRefs, lookup)
		if !matchesTags(entity.Tags, tagIDs) {
			continue
		}
		entities = append(entities, entity)
	}

	SortEntities(kind, entities)
	return entities, nil
}

// liveTags loads the tag collection at most once per read.
type liveTags struct {
	reader *Reader
	tags   []domain.Tag
	loaded bool
}

func (l *liveTags) list(ctx context.Context) ([]domain.Tag, error) {
	if l.loaded {
		return l.tags, nil
	}

	collectionID, ok := l.reader.collections[domain.KindTag]
	if !ok {
		return nil, fmt.Errorf("%s: %w", domain.KindTag, ErrCollectionNotConfigured)
	}
	items, err := l.reader.source.ListItems(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch tag items: %w", err)
	}

	tags := make([]domain.Tag, 0, len(items))
	for _, item := range items {
		if !item.Published() {
			continue
		}
		tag, err := mapping.MapTag(item)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})

	l.tags, l.loaded = tags, true
	return tags, nil
}

func (l *liveTags) lookup(ctx context.Context) (map[string]domain.Tag, error) {
	tags, err := l.list(ctx)
	if err != nil {
		return nil, err
	}
	return mapping.TagLookup(tags), nil
}

func queryKinds(kinds []domain.Kind) ([]domain.Kind, error) {
	if len(kinds) == 0 {
		return domain.EntityKinds, nil
	}
	for _, k := range kinds {
		if !k.IsEntity() {
			return nil, fmt.Errorf("unknown kind %q", k)
		}
	}
	// Canonical order, duplicates dropped.
	ordered := make([]domain.Kind, 0, len(kinds))
	for _, k := range domain.EntityKinds {
		if slices.Contains(kinds, k) {
			ordered = append(ordered, k)
		}
	}
	return ordered, nil
}

// matchesTags reports whether tags has any of ids, by local or external ID.
// An empty filter matches everything.
func matchesTags(tags []domain.Tag, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, t := range tags {
		if (t.ID != "" && slices.Contains(ids, t.ID)) || slices.Contains(ids, t.ExternalID) {
			return true
		}
	}
	return false
}

// SortEntities orders entities of one kind for display, matching the store.
func SortEntities(kind domain.Kind, entities []domain.Entity) {
	byTitle := func(a, b domain.Entity) bool {
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	}

	var less func(a, b domain.Entity) bool
	switch kind {
	case domain.KindStory:
		less = func(a, b domain.Entity) bool {
			pa, pb := storyPublished(a), storyPublished(b)
			if c := compareNullableTime(pa, pb, true); c != 0 {
				return c < 0
			}
			return byTitle(a, b)
		}
	case domain.KindInitiative:
		less = func(a, b domain.Entity) bool {
			sa, sb := initiativeStart(a), initiativeStart(b)
			if c := compareNullableTime(sa, sb, false); c != 0 {
				return c < 0
			}
			return byTitle(a, b)
		}
	default:
		less = byTitle
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return less(entities[i], entities[j])
	})
}

// compareNullableTime orders nil last regardless of direction.
func compareNullableTime(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := a.Compare(*b)
	if desc {
		return -c
	}
	return c
}

func storyPublished(e domain.Entity) *time.Time {
	if d, ok := e.Details.(domain.StoryDetails); ok {
		return d.PublishedAt
	}
	return nil
}

func initiativeStart(e domain.Entity) *time.Time {
	if d, ok := e.Details.(domain.InitiativeDetails); ok {
		return d.StartDate
	}
	return nil
}
