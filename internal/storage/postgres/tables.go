package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cms_mirror/internal/domain"
)

// commonColumns are shared by every entity table, in insert order.
var commonColumns = []string{
	"id", "external_id", "title", "slug", "description", "thumbnail_url",
	"cover_url", "latitude", "longitude", "location_name",
}

// titleOrder sorts by lower-cased title in code point order, the same
// order strings.ToLower comparison gives in Go.
const titleOrder = `lower(e.title) COLLATE "C"`

// table describes how one entity kind is laid out.
type table struct {
	name     string
	junction string
	fk       string
	extras   []string
	orderBy  string

	upsertSQL string
	selectSQL string
}

var tables = map[domain.Kind]*table{
	domain.KindStory: {
		name:     "story",
		junction: "story_tag",
		fk:       "story_id",
		extras:   []string{"audio_url", "published_at"},
		orderBy:  "e.published_at DESC NULLS LAST, " + titleOrder,
	},
	domain.KindPlace: {
		name:     "place",
		junction: "place_tag",
		fk:       "place_id",
		extras:   []string{"address", "website_url", "hours"},
		orderBy:  titleOrder,
	},
	domain.KindInitiative: {
		name:     "initiative",
		junction: "initiative_tag",
		fk:       "initiative_id",
		extras:   []string{"start_date", "end_date", "playlist_url"},
		orderBy:  "e.start_date ASC NULLS LAST, " + titleOrder,
	},
}

func init() {
	for _, t := range tables {
		t.build()
	}
}

func (t *table) build() {
	cols := append(append([]string{}, commonColumns...), t.extras...)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	// id and external_id are the identity; never overwritten.
	sets := make([]string, 0, len(cols))
	for _, c := range cols[2:] {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "updated_at = now()")

	t.upsertSQL = fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (external_id) DO UPDATE SET
			%s
		RETURNING id, (xmax = 0) AS inserted`,
		t.name,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(sets, ",\n\t\t\t"),
	)

	selectCols := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		selectCols = append(selectCols, "e."+c)
	}
	selectCols = append(selectCols, "e.created_at", "e.updated_at")
	t.selectSQL = fmt.Sprintf("SELECT %s FROM %s e", strings.Join(selectCols, ", "), t.name)
}

func tableFor(kind domain.Kind) (*table, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("no table for kind %q", kind)
	}
	return t, nil
}

// args returns insert arguments in column order.
func (t *table) args(id string, e *domain.Entity) ([]any, error) {
	args := []any{
		id, e.ExternalID, e.Title, e.Slug, e.Description, e.ThumbnailURL,
		e.CoverURL, e.Latitude, e.Longitude, e.LocationName,
	}

	switch d := e.Details.(type) {
	case domain.StoryDetails:
		args = append(args, d.AudioURL, d.PublishedAt)
	case domain.PlaceDetails:
		args = append(args, d.Address, d.WebsiteURL, d.Hours)
	case domain.InitiativeDetails:
		args = append(args, d.StartDate, d.EndDate, d.PlaylistURL)
	case nil:
		// Zero details: all kind-specific columns NULL.
		for range t.extras {
			args = append(args, nil)
		}
	default:
		return nil, fmt.Errorf("unexpected details %T", d)
	}

	if e.Details != nil && e.Details.Kind() != e.Kind {
		return nil, fmt.Errorf("details of kind %s on %s entity", e.Details.Kind(), e.Kind)
	}
	return args, nil
}

// entityRow is the union of all entity table columns.
type entityRow struct {
	ID           string    `db:"id"`
	ExternalID   string    `db:"external_id"`
	Title        string    `db:"title"`
	Slug         *string   `db:"slug"`
	Description  *string   `db:"description"`
	ThumbnailURL *string   `db:"thumbnail_url"`
	CoverURL     *string   `db:"cover_url"`
	Latitude     float64   `db:"latitude"`
	Longitude    float64   `db:"longitude"`
	LocationName *string   `db:"location_name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`

	AudioURL    *string    `db:"audio_url"`
	PublishedAt *time.Time `db:"published_at"`

	Address    *string `db:"address"`
	WebsiteURL *string `db:"website_url"`
	Hours      *string `db:"hours"`

	StartDate   *time.Time `db:"start_date"`
	EndDate     *time.Time `db:"end_date"`
	PlaylistURL *string    `db:"playlist_url"`
}

func (r entityRow) toEntity(kind domain.Kind) domain.Entity {
	e := domain.Entity{
		ID:           r.ID,
		Kind:         kind,
		ExternalID:   r.ExternalID,
		Title:        r.Title,
		Slug:         r.Slug,
		Description:  r.Description,
		ThumbnailURL: r.ThumbnailURL,
		CoverURL:     r.CoverURL,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		LocationName: r.LocationName,
		Tags:         []domain.Tag{},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}

	switch kind {
	case domain.KindStory:
		e.Details = domain.StoryDetails{AudioURL: r.AudioURL, PublishedAt: r.PublishedAt}
	case domain.KindPlace:
		e.Details = domain.PlaceDetails{Address: r.Address, WebsiteURL: r.WebsiteURL, Hours: r.Hours}
	case domain.KindInitiative:
		e.Details = domain.InitiativeDetails{StartDate: r.StartDate, EndDate: r.EndDate, PlaylistURL: r.PlaylistURL}
	}
	return e
}
