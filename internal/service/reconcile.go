package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cms_mirror/internal/config"
	"cms_mirror/internal/domain"
	"cms_mirror/internal/mapping"
)

var ErrCollectionNotConfigured = errors.New("collection not configured")

// Report holds reconciliation stats per kind.
type Report map[domain.Kind]*domain.SyncStats

// Processed returns created plus updated counts per kind.
func (r Report) Processed() map[domain.Kind]int {
	counts := make(map[domain.Kind]int, len(r))
	for kind, stats := range r {
		counts[kind] = stats.Processed()
	}
	return counts
}

// Reconciler brings the mirror in line with full CMS listings.
type Reconciler struct {
	source      Source
	upserter    *Upserter
	tags        TagStore
	syncState   SyncStateStore
	collections domain.Collections
	mode        config.SyncMode
	logger      *slog.Logger
}

func NewReconciler(
	source Source,
	upserter *Upserter,
	tags TagStore,
	syncState SyncStateStore,
	collections domain.Collections,
	cfg config.SyncConfig,
	logger *slog.Logger,
) *Reconciler {
	mode := cfg.Mode
	if mode == "" {
		mode = config.SyncModeAdditive
	}
	return &Reconciler{
		source:      source,
		upserter:    upserter,
		tags:        tags,
		syncState:   syncState,
		collections: collections,
		mode:        mode,
		logger:      logger.With("component", "reconciler"),
	}
}

// Run reconciles tags first, then every configured entity kind
// concurrently. A failing kind does not stop the others; all failures are
// joined into the returned error.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	startTime := time.Now()
	r.logger.Info("starting reconciliation", "mode", r.mode)

	report := Report{}
	var errs []error

	if err := r.reconcileTags(ctx, report); err != nil {
		errs = append(errs, err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, kind := range domain.EntityKinds {
		if _, ok := r.collections[kind]; !ok {
			r.logger.Debug("collection not configured, skipping", "kind", kind)
			continue
		}
		g.Go(func() error {
			stats, err := r.reconcileKind(ctx, kind)

			mu.Lock()
			defer mu.Unlock()
			if stats != nil {
				report[kind] = stats
			}
			if err != nil {
				errs = append(errs, err)
			}
			return err
		})
	}
	_ = g.Wait()

	r.logger.Info("reconciliation completed",
		"kinds", len(report),
		"failed", len(errs),
		"duration", time.Since(startTime),
	)

	return report, errors.Join(errs...)
}

// RunKind reconciles a single kind. An entity kind reconciles the tag
// collection first so references to new tags resolve; a tag failure is
// reported but the kind still runs against the stored tags.
func (r *Reconciler) RunKind(ctx context.Context, kind domain.Kind) (Report, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	if _, ok := r.collections[kind]; !ok {
		return nil, fmt.Errorf("%s: %w", kind, ErrCollectionNotConfigured)
	}

	report := Report{}
	var errs []error

	if kind.IsEntity() {
		if err := r.reconcileTags(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}

	stats, err := r.reconcileKind(ctx, kind)
	if stats != nil {
		report[kind] = stats
	}
	if err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

func (r *Reconciler) reconcileTags(ctx context.Context, report Report) error {
	if _, ok := r.collections[domain.KindTag]; !ok {
		r.logger.Warn("tag collection not configured, skipping tags")
		return nil
	}
	stats, err := r.reconcileKind(ctx, domain.KindTag)
	if stats != nil {
		report[domain.KindTag] = stats
	}
	return err
}

func (r *Reconciler) reconcileKind(ctx context.Context, kind domain.Kind) (*domain.SyncStats, error) {
	collectionID := r.collections[kind]

	startTime := time.Now()
	logger := r.logger.With("kind", kind)
	stats := &domain.SyncStats{Kind: kind}

	apply, err := r.applier(ctx, kind)
	if err != nil {
		return nil, err
	}

	items, err := r.source.ListItems(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s items: %w", kind, err)
	}
	stats.Fetched = len(items)
	logger.Info("fetched items", "count", len(items))

	seen := make([]string, 0, len(items))
	for _, item := range items {
		if !item.Published() {
			stats.Skipped++
			continue
		}
		seen = append(seen, item.ExternalID)

		outcome, err := apply(item)
		if err != nil {
			stats.Errors++
			logger.Error("failed to apply item", "external_id", item.ExternalID, "error", err)
			continue
		}
		switch outcome {
		case OutcomeCreated:
			stats.Created++
		case OutcomeUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	// The listing above is complete: ListItems fails rather than returning a
	// partial result.
	if r.mode == config.SyncModeMirror {
		deleted, err := r.upserter.Prune(ctx, kind, seen)
		if err != nil {
			return stats, err
		}
		stats.Deleted = deleted
	}

	if err := r.updateSyncState(ctx, stats); err != nil {
		return stats, fmt.Errorf("update sync state: %w", err)
	}

	stats.Duration = time.Since(startTime)

	logger.Info("kind reconciled",
		"fetched", stats.Fetched,
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"deleted", stats.Deleted,
		"duration", stats.Duration,
	)

	return stats, nil
}

// applier returns the per-item write for kind. Entity kinds resolve tags
// against one lookup loaded up front.
func (r *Reconciler) applier(ctx context.Context, kind domain.Kind) (func(domain.SourceItem) (Outcome, error), error) {
	if kind == domain.KindTag {
		return func(item domain.SourceItem) (Outcome, error) {
			return r.upserter.ApplyTag(ctx, item)
		}, nil
	}

	tags, err := r.tags.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	lookup := mapping.TagLookup(tags)

	return func(item domain.SourceItem) (Outcome, error) {
		return r.upserter.Apply(ctx, kind, item, lookup)
	}, nil
}

func (r *Reconciler) updateSyncState(ctx context.Context, stats *domain.SyncStats) error {
	_, err := r.syncState.Record(ctx, stats.Kind, int64(stats.Processed()), time.Now().UTC())
	return err
}
