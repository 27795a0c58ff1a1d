package cms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"cms_mirror/internal/domain"
)

// Config holds CMS client configuration.
type Config struct {
	BaseURL        string
	Token          string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source lists collection items from the CMS API.
type Source struct {
	client   *resty.Client
	pageSize int
	logger   *slog.Logger
}

// New creates a CMS source. Every request is bounded by cfg.Timeout and
// retried on network errors, 429 and 5xx with exponential backoff.
func New(cfg Config, logger *slog.Logger) *Source {
	retries := cfg.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}

	log := logger.With("component", "cms")

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(cfg.InitialBackoff).
		SetRetryMaxWaitTime(cfg.MaxBackoff).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "cms-mirror/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			var attrs []any
			if r != nil && r.Request != nil {
				attrs = append(attrs, "attempt", r.Request.Attempt, "url", r.Request.URL)
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			} else {
				attrs = append(attrs, "status", r.StatusCode())
			}
			log.Warn("request failed, retrying", attrs...)
		})

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Source{
		client:   client,
		pageSize: pageSize,
		logger:   log,
	}
}

// ListItems fetches every item of a collection, following offset
// pagination until the reported total is reached or a page comes back empty.
// A failed page fails the listing and no items are returned.
func (s *Source) ListItems(ctx context.Context, collectionID string) ([]domain.SourceItem, error) {
	if collectionID == "" {
		return nil, errors.New("empty collection id")
	}

	var items []domain.SourceItem
	offset := 0

	for {
		page, err := s.fetchPage(ctx, collectionID, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		for _, it := range page.Items {
			items = append(items, toSourceItem(collectionID, it))
		}

		s.logger.Debug("fetched page",
			"collection_id", collectionID,
			"offset", offset,
			"items", len(page.Items),
			"total", page.Pagination.Total,
		)

		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.Pagination.Total {
			break
		}
	}

	return items, nil
}

func (s *Source) fetchPage(ctx context.Context, collectionID string, offset int) (*ListResponse, error) {
	var page ListResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("collectionID", collectionID).
		SetQueryParams(map[string]string{
			"offset": strconv.Itoa(offset),
			"limit":  strconv.Itoa(s.pageSize),
		}).
		SetResult(&page).
		Get("/collections/{collectionID}/items")
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}
	return &page, nil
}

func toSourceItem(collectionID string, it Item) domain.SourceItem {
	fields := it.FieldData
	if fields == nil {
		fields = map[string]any{}
	}
	return domain.SourceItem{
		ExternalID:    it.ID,
		CollectionID:  collectionID,
		Fields:        fields,
		Draft:         it.IsDraft,
		Archived:      it.IsArchived,
		LastPublished: it.LastPublished,
	}
}
