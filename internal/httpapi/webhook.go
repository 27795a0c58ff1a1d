package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cms_mirror/internal/domain"
	"cms_mirror/internal/service"
	"cms_mirror/internal/webhook"
)

const maxWebhookBody = 1 << 20

type WebhookApplier interface {
	Handle(ctx context.Context, event domain.WebhookEvent) (service.WebhookResult, error)
}

type Deduplicator interface {
	Claim(ctx context.Context, signature string) (bool, error)
	Release(ctx context.Context, signature string) error
}

type WebhookHandler struct {
	verifier *webhook.Verifier
	deduper  Deduplicator
	service  WebhookApplier
	logger   *slog.Logger
}

// NewWebhookHandler builds the webhook endpoint. deduper may be nil.
func NewWebhookHandler(verifier *webhook.Verifier, deduper Deduplicator, svc WebhookApplier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		deduper:  deduper,
		service:  svc,
		logger:   logger.With("handler", "webhook"),
	}
}

type webhookRequest struct {
	EventType string                `json:"eventType"`
	Payload   domain.WebhookPayload `json:"payload"`
}

type webhookResponse struct {
	Status string      `json:"status"`
	Kind   domain.Kind `json:"kind,omitempty"`
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("read body: %w", err))
		return
	}

	signature := c.GetHeader(webhook.SignatureHeader)
	if err := h.verifier.Verify(c.GetHeader(webhook.TimestampHeader), signature, body); err != nil {
		h.logger.Warn("rejected webhook", "error", err)
		RespondError(c, http.StatusUnauthorized, "unauthorized", webhook.ErrUnauthorized)
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_json", fmt.Errorf("decode webhook: %w", err))
		return
	}
	eventType, ok := domain.ParseEventType(req.EventType)
	if !ok {
		RespondError(c, http.StatusBadRequest, "unknown_event_type", fmt.Errorf("unknown event type %q", req.EventType))
		return
	}

	ctx := c.Request.Context()
	claimed := false
	if h.deduper != nil && h.verifier.Enabled() {
		first, err := h.deduper.Claim(ctx, signature)
		switch {
		case err != nil:
			h.logger.Warn("dedup unavailable, processing delivery", "error", err)
		case !first:
			h.logger.Info("duplicate delivery", "external_id", req.Payload.ExternalID)
			RespondOK(c, webhookResponse{Status: "duplicate"})
			return
		default:
			claimed = true
		}
	}

	result, err := h.service.Handle(ctx, domain.WebhookEvent{Type: eventType, Payload: req.Payload})
	if err != nil {
		if claimed {
			if rerr := h.deduper.Release(ctx, signature); rerr != nil {
				h.logger.Warn("failed to release delivery", "error", rerr)
			}
		}
		if errors.Is(err, service.ErrInvalidEvent) {
			RespondError(c, http.StatusBadRequest, "invalid_event", err)
			return
		}
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "apply_failed", errors.New("failed to apply event"))
		return
	}

	RespondOK(c, webhookResponse{Status: string(result.Status), Kind: result.Kind})
}
