package mapping

import (
	"fmt"

	"cms_mirror/internal/domain"
)

// KindSpec is the field-name table for one content kind. The mapper is
// generic; everything that differs between kinds lives here.
type KindSpec struct {
	Kind         domain.Kind
	Title        []string
	Slug         []string
	Description  []string
	Thumbnail    []string
	Cover        []string
	LocationName []string
	TagRefs      []string
	Coordinates  CoordinateFields
	// Details builds the kind-specific payload.
	Details func(b Bag, item domain.SourceItem) domain.Details
}

var commonCoordinates = CoordinateFields{
	Combined:  []string{"coordinates", "lat-lng", "location-coordinates"},
	Latitude:  []string{"latitude", "lat"},
	Longitude: []string{"longitude", "lng", "long"},
}

var specs = map[domain.Kind]KindSpec{
	domain.KindStory: {
		Kind:         domain.KindStory,
		Title:        []string{"name", "title"},
		Slug:         []string{"slug"},
		Description:  []string{"description", "summary", "post-body"},
		Thumbnail:    []string{"thumbnail", "thumbnail-image", "main-image"},
		Cover:        []string{"cover-image", "cover", "hero-image"},
		LocationName: []string{"location-name", "location"},
		TagRefs:      []string{"tags", "tag"},
		Coordinates:  commonCoordinates,
		Details: func(b Bag, item domain.SourceItem) domain.Details {
			published := b.Time([]string{"publish-date", "published-at", "date"})
			if published == nil && item.LastPublished != nil {
				t := item.LastPublished.UTC()
				published = &t
			}
			return domain.StoryDetails{
				AudioURL:    b.Link([]string{"soundcloud-link", "audio-link", "audio-url", "spotify-link"}),
				PublishedAt: published,
			}
		},
	},
	domain.KindPlace: {
		Kind:         domain.KindPlace,
		Title:        []string{"name", "title"},
		Slug:         []string{"slug"},
		Description:  []string{"description", "summary"},
		Thumbnail:    []string{"thumbnail", "thumbnail-image", "main-image"},
		Cover:        []string{"cover-image", "cover", "hero-image"},
		LocationName: []string{"location-name", "location", "city"},
		TagRefs:      []string{"tags", "tag"},
		Coordinates:  commonCoordinates,
		Details: func(b Bag, _ domain.SourceItem) domain.Details {
			return domain.PlaceDetails{
				Address:    b.String([]string{"address", "street-address"}),
				WebsiteURL: b.Link([]string{"website", "website-url", "website-link"}),
				Hours:      b.String([]string{"opening-hours", "hours"}),
			}
		},
	},
	domain.KindInitiative: {
		Kind:         domain.KindInitiative,
		Title:        []string{"name", "title"},
		Slug:         []string{"slug"},
		Description:  []string{"description", "summary"},
		Thumbnail:    []string{"thumbnail", "thumbnail-image", "main-image"},
		Cover:        []string{"cover-image", "cover", "hero-image"},
		LocationName: []string{"location-name", "location"},
		TagRefs:      []string{"tags", "tag"},
		Coordinates:  commonCoordinates,
		Details: func(b Bag, _ domain.SourceItem) domain.Details {
			return domain.InitiativeDetails{
				StartDate:   b.Time([]string{"start-date", "event-date", "date"}),
				EndDate:     b.Time([]string{"end-date"}),
				PlaylistURL: b.Link([]string{"playlist", "playlist-url", "playlist-link"}),
			}
		},
	},
}

// SpecFor returns the field table for an entity kind.
func SpecFor(kind domain.Kind) (KindSpec, error) {
	s, ok := specs[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("no field mapping for kind %q", kind)
	}
	return s, nil
}
