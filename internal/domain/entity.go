package domain

import (
	"fmt"
	"time"
)

// Kind identifies a content type mirrored from the CMS.
type Kind string

const (
	KindStory      Kind = "story"
	KindPlace      Kind = "place"
	KindInitiative Kind = "initiative"
	// KindTag is only used for routing webhook payloads; tags are not entities.
	KindTag Kind = "tag"
)

// EntityKinds lists entity kinds in their canonical order.
var EntityKinds = []Kind{KindStory, KindPlace, KindInitiative}

func (k Kind) IsEntity() bool {
	switch k {
	case KindStory, KindPlace, KindInitiative:
		return true
	}
	return false
}

func (k Kind) Valid() bool {
	return k == KindTag || k.IsEntity()
}

// ParseKind accepts singular and plural forms ("story", "stories").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "story", "stories":
		return KindStory, nil
	case "place", "places":
		return KindPlace, nil
	case "initiative", "initiatives":
		return KindInitiative, nil
	case "tag", "tags":
		return KindTag, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

type Entity struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	ExternalID   string    `json:"externalId"`
	Title        string    `json:"title"`
	Slug         *string   `json:"slug"`
	Description  *string   `json:"description"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	CoverURL     *string   `json:"coverUrl"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LocationName *string   `json:"locationName"`
	Details      Details   `json:"details"`
	Tags         []Tag     `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// TagRefs holds the external tag IDs carried by the CMS item. It is only
	// populated on drafts produced by the field mapper.
	TagRefs []string `json:"-"`
}

// Details carries the kind-specific part of an Entity. Exactly one of
// StoryDetails, PlaceDetails or InitiativeDetails implements it.
type Details interface {
	Kind() Kind
	sealed()
}

type StoryDetails struct {
	AudioURL    *string    `json:"audioUrl"`
	PublishedAt *time.Time `json:"publishedAt"`
}

func (StoryDetails) Kind() Kind { return KindStory }
func (StoryDetails) sealed()    {}

type PlaceDetails struct {
	Address    *string `json:"address"`
	WebsiteURL *string `json:"websiteUrl"`
	Hours      *string `json:"hours"`
}

func (PlaceDetails) Kind() Kind { return KindPlace }
func (PlaceDetails) sealed()    {}

type InitiativeDetails struct {
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	PlaylistURL *string    `json:"playlistUrl"`
}

func (InitiativeDetails) Kind() Kind { return KindInitiative }
func (InitiativeDetails) sealed()    {}

type Tag struct {
	ID         string  `json:"id" db:"id"`
	ExternalID string  `json:"externalId" db:"external_id"`
	Name       string  `json:"name" db:"name"`
	Slug       *string `json:"slug" db:"slug"`
}

// SourceItem is a raw CMS collection item before field mapping.
type SourceItem struct {
	ExternalID    string
	CollectionID  string
	Fields        map[string]any
	Draft         bool
	Archived      bool
	LastPublished *time.Time
}

// Published reports whether the item should be visible in the mirror.
func (i SourceItem) Published() bool {
	return !i.Draft && !i.Archived
}

// Query selects entities on the read path. Empty Kinds means all kinds;
// TagIDs match with OR semantics against a tag's ID or external ID.
type Query struct {
	Kinds  []Kind
	TagIDs []string
}
