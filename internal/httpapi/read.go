package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cms_mirror/internal/domain"
)

type Reader interface {
	List(ctx context.Context, q domain.Query) ([]domain.Entity, error)
	GetBySlug(ctx context.Context, kind domain.Kind, slug string) (*domain.Entity, error)
	Tags(ctx context.Context) ([]domain.Tag, error)
	SyncStatus(ctx context.Context) ([]domain.SyncState, error)
}

type ReadHandler struct {
	reader Reader
}

func NewReadHandler(reader Reader) *ReadHandler {
	return &ReadHandler{reader: reader}
}

// ListKind serves one kind's list endpoint.
func (h *ReadHandler) ListKind(kind domain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.list(c, domain.Query{Kinds: []domain.Kind{kind}, TagIDs: splitList(c.Query("tags"))})
	}
}

// ListEntities serves ?kinds=story,place&tags=a,b across kinds.
func (h *ReadHandler) ListEntities(c *gin.Context) {
	q := domain.Query{TagIDs: splitList(c.Query("tags"))}
	for _, raw := range splitList(c.Query("kinds")) {
		kind, err := domain.ParseKind(raw)
		if err != nil || !kind.IsEntity() {
			RespondError(c, http.StatusBadRequest, "invalid_kind", errors.New("unknown kind "+raw))
			return
		}
		q.Kinds = append(q.Kinds, kind)
	}
	h.list(c, q)
}

func (h *ReadHandler) list(c *gin.Context, q domain.Query) {
	entities, err := h.reader.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "read_failed", errors.New("failed to load entities"))
		return
	}
	RespondOK(c, entities)
}

// GetBySlug serves one entity of kind by :slug.
func (h *ReadHandler) GetBySlug(kind domain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entity, err := h.reader.GetBySlug(c.Request.Context(), kind, c.Param("slug"))
		if errors.Is(err, domain.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		if err != nil {
			_ = c.Error(err)
			RespondError(c, http.StatusInternalServerError, "read_failed", errors.New("failed to load entity"))
			return
		}
		RespondOK(c, entity)
	}
}

func (h *ReadHandler) Tags(c *gin.Context) {
	tags, err := h.reader.Tags(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "read_failed", errors.New("failed to load tags"))
		return
	}
	RespondOK(c, tags)
}

func (h *ReadHandler) SyncStatus(c *gin.Context) {
	states, err := h.reader.SyncStatus(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "read_failed", errors.New("failed to load sync status"))
		return
	}
	RespondOK(c, states)
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
