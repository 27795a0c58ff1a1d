package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cms_mirror/internal/domain"
)

var ErrInvalidEvent = errors.New("invalid event")

// WebhookStatus says what a delivery did to the mirror.
type WebhookStatus string

const (
	WebhookIgnored WebhookStatus = "ignored"
	WebhookApplied WebhookStatus = "applied"
	WebhookSkipped WebhookStatus = "skipped"
	WebhookRemoved WebhookStatus = "removed"
	// WebhookAbsent means a removal for an item the mirror never had.
	WebhookAbsent WebhookStatus = "absent"
)

type WebhookResult struct {
	Kind   domain.Kind   `json:"kind,omitempty"`
	Status WebhookStatus `json:"status"`
}

// WebhookService applies authenticated change notifications.
type WebhookService struct {
	upserter    *Upserter
	collections domain.Collections
	logger      *slog.Logger
}

func NewWebhookService(upserter *Upserter, collections domain.Collections, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		upserter:    upserter,
		collections: collections,
		logger:      logger.With("component", "webhook"),
	}
}

// Handle routes event by collection and applies it. Events for collections
// that are not mirrored are acknowledged without effect.
func (s *WebhookService) Handle(ctx context.Context, event domain.WebhookEvent) (WebhookResult, error) {
	payload := event.Payload

	kind, ok := s.collections.KindFor(payload.CollectionID)
	if !ok {
		s.logger.Info("ignoring event for unmapped collection",
			"collection_id", payload.CollectionID,
			"event_type", event.Type,
		)
		return WebhookResult{Status: WebhookIgnored}, nil
	}
	if payload.ExternalID == "" {
		return WebhookResult{Kind: kind}, fmt.Errorf("%w: missing external id", ErrInvalidEvent)
	}

	logger := s.logger.With("kind", kind, "external_id", payload.ExternalID, "event_type", event.Type)

	if event.Type.IsRemoval() {
		var (
			removed bool
			err     error
		)
		if kind == domain.KindTag {
			removed, err = s.upserter.DeleteTag(ctx, payload.ExternalID)
		} else {
			removed, err = s.upserter.DeleteEntity(ctx, kind, payload.ExternalID)
		}
		if err != nil {
			return WebhookResult{Kind: kind}, err
		}
		if !removed {
			logger.Debug("removal for unknown item")
			return WebhookResult{Kind: kind, Status: WebhookAbsent}, nil
		}
		logger.Info("item removed")
		return WebhookResult{Kind: kind, Status: WebhookRemoved}, nil
	}

	item := domain.SourceItem{
		ExternalID:   payload.ExternalID,
		CollectionID: payload.CollectionID,
		Fields:       payload.Fields,
	}

	var (
		outcome Outcome
		err     error
	)
	if kind == domain.KindTag {
		outcome, err = s.upserter.ApplyTag(ctx, item)
	} else {
		outcome, err = s.upserter.Apply(ctx, kind, item, nil)
	}
	if err != nil {
		return WebhookResult{Kind: kind}, err
	}
	if outcome == OutcomeSkipped {
		return WebhookResult{Kind: kind, Status: WebhookSkipped}, nil
	}

	logger.Info("item applied", "outcome", outcome)
	return WebhookResult{Kind: kind, Status: WebhookApplied}, nil
}
