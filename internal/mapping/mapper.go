// Package mapping turns raw CMS items into domain records. It performs no I/O.
package mapping

import (
	"errors"
	"fmt"

	"cms_mirror/internal/domain"
)

var (
	ErrMissingTitle = errors.New("missing title")
	ErrMissingName  = errors.New("missing tag name")
)

// IsDataQuality reports whether err means the item itself is unusable.
// Such items are skipped, never retried.
func IsDataQuality(err error) bool {
	return errors.Is(err, ErrMissingTitle) ||
		errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrInvalidCoordinates)
}

// MapEntity builds an entity draft (no local ID, no resolved tags) from item.
func MapEntity(kind domain.Kind, item domain.SourceItem) (domain.Entity, error) {
	spec, err := SpecFor(kind)
	if err != nil {
		return domain.Entity{}, err
	}
	return spec.Map(item)
}

func (s KindSpec) Map(item domain.SourceItem) (domain.Entity, error) {
	b := Bag(item.Fields)

	title := b.String(s.Title)
	if title == nil {
		return domain.Entity{}, fmt.Errorf("%s %s: %w", s.Kind, item.ExternalID, ErrMissingTitle)
	}

	coords, err := ParseCoordinates(b, s.Coordinates)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("%s %s: %w", s.Kind, item.ExternalID, err)
	}

	return domain.Entity{
		Kind:         s.Kind,
		ExternalID:   item.ExternalID,
		Title:        *title,
		Slug:         b.String(s.Slug),
		Description:  b.String(s.Description),
		ThumbnailURL: b.Link(s.Thumbnail),
		CoverURL:     b.Link(s.Cover),
		Latitude:     coords.Latitude,
		Longitude:    coords.Longitude,
		LocationName: b.String(s.LocationName),
		Details:      s.Details(b, item),
		TagRefs:      b.Refs(s.TagRefs),
	}, nil
}

// MapTag builds a tag record from an item of the tag collection.
func MapTag(item domain.SourceItem) (domain.Tag, error) {
	b := Bag(item.Fields)
	name := b.String([]string{"name", "title"})
	if name == nil {
		return domain.Tag{}, fmt.Errorf("tag %s: %w", item.ExternalID, ErrMissingName)
	}
	return domain.Tag{
		ExternalID: item.ExternalID,
		Name:       *name,
		Slug:       b.String([]string{"slug"}),
	}, nil
}
