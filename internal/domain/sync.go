package domain

import (
	"strings"
	"time"
)

// SyncStats holds statistics about a reconciliation of one kind.
type SyncStats struct {
	Kind     Kind          `json:"kind"`
	Fetched  int           `json:"fetched"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   int           `json:"errors"`
	Deleted  int           `json:"deleted"`
	Duration time.Duration `json:"duration"`
}

// Processed counts items that ended up in the store.
func (s *SyncStats) Processed() int {
	return s.Created + s.Updated
}

type SyncState struct {
	ID           int64     `db:"id" json:"-"`
	Kind         Kind      `db:"kind" json:"kind"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"lastSyncedAt"`
	LastCount    int64     `db:"last_count" json:"lastCount"`
	TotalSynced  int64     `db:"total_synced" json:"totalSynced"`
}

// EventType discriminates webhook notifications.
type EventType string

const (
	EventCreated     EventType = "created"
	EventChanged     EventType = "changed"
	EventDeleted     EventType = "deleted"
	EventUnpublished EventType = "unpublished"
)

// IsRemoval reports whether the event removes the item from the mirror.
func (e EventType) IsRemoval() bool {
	return e == EventDeleted || e == EventUnpublished
}

// WebhookEvent is a decoded, authenticated change notification.
type WebhookEvent struct {
	Type    EventType      `json:"eventType"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	ExternalID   string         `json:"externalId"`
	CollectionID string         `json:"collectionId"`
	Fields       map[string]any `json:"fields"`
}

// Collections maps CMS collection IDs to kinds.
type Collections map[Kind]string

// KindFor returns the kind configured for collectionID.
func (c Collections) KindFor(collectionID string) (Kind, bool) {
	if collectionID == "" {
		return "", false
	}
	for kind, id := range c {
		if id == collectionID {
			return kind, true
		}
	}
	return "", false
}

// ParseEventType normalizes event names, accepting CMS-prefixed trigger
// names such as "collection_item_created".
func ParseEventType(s string) (EventType, bool) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "collection_item_")
	switch EventType(s) {
	case EventCreated, EventChanged, EventDeleted, EventUnpublished:
		return EventType(s), true
	}
	return "", false
}

// ChangeAction describes what happened to a mirrored record.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// Change is emitted after a record is written to or removed from the mirror.
type Change struct {
	Action     ChangeAction `json:"action"`
	Kind       Kind         `json:"kind"`
	ExternalID string       `json:"externalId"`
	Entity     *Entity      `json:"entity,omitempty"`
	Tag        *Tag         `json:"tag,omitempty"`
}
