package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cms_mirror/internal/domain"
	"cms_mirror/internal/service"
)

type Reconciler interface {
	Run(ctx context.Context) (service.Report, error)
	RunKind(ctx context.Context, kind domain.Kind) (service.Report, error)
}

type SyncHandler struct {
	reconciler Reconciler
	timeout    time.Duration
	logger     *slog.Logger
}

// NewSyncHandler builds the manual sync endpoint. Each run is bounded by
// timeout and outlives the request that started it.
func NewSyncHandler(reconciler Reconciler, timeout time.Duration, logger *slog.Logger) *SyncHandler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &SyncHandler{
		reconciler: reconciler,
		timeout:    timeout,
		logger:     logger.With("handler", "sync"),
	}
}

type syncResponse struct {
	Success       bool                `json:"success"`
	PerKindCounts map[domain.Kind]int `json:"perKindCounts"`
	Stats         service.Report      `json:"stats"`
}

// Trigger runs a full reconciliation, or one kind with ?kind=.
func (h *SyncHandler) Trigger(c *gin.Context) {
	var kind domain.Kind
	if raw := c.Query("kind"); raw != "" {
		k, err := domain.ParseKind(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_kind", err)
			return
		}
		kind = k
	}

	// A client disconnect or write deadline must not abort a run halfway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()

	var (
		report service.Report
		err    error
	)
	if kind != "" {
		report, err = h.reconciler.RunKind(ctx, kind)
	} else {
		report, err = h.reconciler.Run(ctx)
	}

	if err != nil {
		if errors.Is(err, service.ErrCollectionNotConfigured) {
			RespondError(c, http.StatusBadRequest, "collection_not_configured", err)
			return
		}
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "sync_failed", err)
		return
	}

	RespondOK(c, syncResponse{
		Success:       true,
		PerKindCounts: report.Processed(),
		Stats:         report,
	})
}
