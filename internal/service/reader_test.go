package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"cms_mirror/internal/domain"
	"cms_mirror/internal/testutil"
)

type ReaderTestSuite struct {
	mockedSuite
	reader *Reader
}

func (s *ReaderTestSuite) SetupTest() {
	s.mockedSuite.SetupTest()
	s.reader = NewReader(s.entities, s.tags, s.syncState, s.source, s.collections, s.logger)
}

func TestReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

func (s *ReaderTestSuite) TestList_FromStore() {
	ctx := context.Background()
	stored := []domain.Entity{{ID: "ent-1", Kind: domain.KindPlace, Title: "Bakery", Tags: []domain.Tag{}}}

	s.entities.EXPECT().List(ctx, domain.KindPlace, []string{"t1"}).Return(stored, nil)

	entities, err := s.reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindPlace}, TagIDs: []string{"t1"}})

	s.NoError(err)
	s.Equal(stored, entities)
}

func (s *ReaderTestSuite) TestList_KindsInCanonicalOrder() {
	ctx := context.Background()

	s.entities.EXPECT().List(ctx, domain.KindStory, nil).Return([]domain.Entity{{ID: "s1", Kind: domain.KindStory}}, nil)
	s.entities.EXPECT().List(ctx, domain.KindInitiative, nil).Return([]domain.Entity{{ID: "i1", Kind: domain.KindInitiative}}, nil)

	entities, err := s.reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindInitiative, domain.KindStory, domain.KindStory}})

	s.NoError(err)
	s.Require().Len(entities, 2)
	s.Equal("s1", entities[0].ID)
	s.Equal("i1", entities[1].ID)
}

func (s *ReaderTestSuite) TestList_EmptyStoreFallsBackToLive() {
	ctx := context.Background()
	early := storyItem("e1", "Early", "t1")
	early.Fields["publish-date"] = "2024-01-01"
	late := storyItem("e2", "Late", "t1")
	late.Fields["publish-date"] = "2024-06-01"
	untagged := storyItem("e3", "Untagged", "t2")
	draft := storyItem("e4", "Draft", "t1")
	draft.Draft = true

	s.entities.EXPECT().List(ctx, domain.KindStory, []string{"t1"}).Return([]domain.Entity{}, nil)
	s.source.EXPECT().ListItems(ctx, "col-stories").Return([]domain.SourceItem{early, late, untagged, draft}, nil)
	s.source.EXPECT().ListItems(ctx, "col-tags").Return([]domain.SourceItem{tagItem("t1", "Nature"), tagItem("t2", "Walks")}, nil)

	entities, err := s.reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindStory}, TagIDs: []string{"t1"}})

	s.NoError(err)
	s.Require().Len(entities, 2)
	s.Equal("Late", entities[0].Title)
	s.Equal("Early", entities[1].Title)
	s.Require().Len(entities[0].Tags, 1)
	s.Equal("Nature", entities[0].Tags[0].Name)
}

func (s *ReaderTestSuite) readerWithout(kind domain.Kind) *Reader {
	collections := domain.Collections{}
	for k, id := range s.collections {
		if k != kind {
			collections[k] = id
		}
	}
	return NewReader(s.entities, s.tags, s.syncState, s.source, collections, s.logger)
}

func (s *ReaderTestSuite) TestList_UnconfiguredKindStaysEmpty() {
	ctx := context.Background()
	reader := s.readerWithout(domain.KindInitiative)

	s.entities.EXPECT().List(ctx, domain.KindStory, nil).Return([]domain.Entity{{ID: "s1", Kind: domain.KindStory}}, nil)
	s.entities.EXPECT().List(ctx, domain.KindPlace, nil).Return([]domain.Entity{{ID: "p1", Kind: domain.KindPlace}}, nil)
	s.entities.EXPECT().List(ctx, domain.KindInitiative, nil).Return([]domain.Entity{}, nil)

	entities, err := reader.List(ctx, domain.Query{})

	s.NoError(err)
	s.Require().Len(entities, 2)
	s.Equal("s1", entities[0].ID)
	s.Equal("p1", entities[1].ID)

	s.entities.EXPECT().List(ctx, domain.KindInitiative, nil).Return([]domain.Entity{}, nil)

	entities, err = reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindInitiative}})

	s.NoError(err)
	s.NotNil(entities)
	s.Empty(entities)
}

func (s *ReaderTestSuite) TestList_UnconfiguredKindStoreErrorFails() {
	ctx := context.Background()
	reader := s.readerWithout(domain.KindPlace)

	s.entities.EXPECT().List(ctx, domain.KindPlace, nil).Return(nil, errors.New("connection refused"))

	_, err := reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindPlace}})

	s.ErrorContains(err, "connection refused")
}

func (s *ReaderTestSuite) TestGetBySlug_UnconfiguredKindNotFound() {
	ctx := context.Background()
	reader := s.readerWithout(domain.KindPlace)

	s.entities.EXPECT().GetBySlug(ctx, domain.KindPlace, "bakery").Return(nil, domain.ErrNotFound)

	_, err := reader.GetBySlug(ctx, domain.KindPlace, "bakery")

	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *ReaderTestSuite) TestList_StoreErrorFallsBackToLive() {
	ctx := context.Background()

	s.entities.EXPECT().List(ctx, domain.KindPlace, nil).Return(nil, errors.New("connection refused"))
	s.source.EXPECT().ListItems(ctx, "col-places").Return([]domain.SourceItem{{
		ExternalID: "p1",
		Fields:     map[string]any{"name": "Bakery", "latitude": 52.0, "longitude": 4.0},
	}}, nil)
	s.source.EXPECT().ListItems(ctx, "col-tags").Return([]domain.SourceItem{}, nil)

	entities, err := s.reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindPlace}})

	s.NoError(err)
	s.Require().Len(entities, 1)
	s.Equal("p1", entities[0].ExternalID)
}

func (s *ReaderTestSuite) TestList_BothSourcesFail() {
	ctx := context.Background()

	s.entities.EXPECT().List(ctx, domain.KindPlace, nil).Return(nil, errors.New("connection refused"))
	s.source.EXPECT().ListItems(ctx, "col-places").Return(nil, errors.New("cms unavailable"))

	_, err := s.reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindPlace}})

	s.Error(err)
	s.Contains(err.Error(), "connection refused")
	s.Contains(err.Error(), "cms unavailable")
}

func (s *ReaderTestSuite) TestList_EmptyStoreAndLiveFailure() {
	ctx := context.Background()

	s.entities.EXPECT().List(ctx, domain.KindPlace, nil).Return([]domain.Entity{}, nil)
	s.source.EXPECT().ListItems(ctx, "col-places").Return(nil, errors.New("cms unavailable"))

	_, err := s.reader.List(ctx, domain.Query{Kinds: []domain.Kind{domain.KindPlace}})

	s.Error(err)
}

func (s *ReaderTestSuite) TestList_UnknownKind() {
	_, err := s.reader.List(context.Background(), domain.Query{Kinds: []domain.Kind{domain.KindTag}})

	s.Error(err)
}

func (s *ReaderTestSuite) TestGetBySlug_FromStore() {
	ctx := context.Background()
	stored := &domain.Entity{ID: "ent-1", Title: "Forest Walk"}

	s.entities.EXPECT().GetBySlug(ctx, domain.KindStory, "forest-walk").Return(stored, nil)

	entity, err := s.reader.GetBySlug(ctx, domain.KindStory, "forest-walk")

	s.NoError(err)
	s.Equal(stored, entity)
}

func (s *ReaderTestSuite) TestGetBySlug_LiveFallback() {
	ctx := context.Background()

	s.entities.EXPECT().GetBySlug(ctx, domain.KindStory, "e1-slug").Return(nil, domain.ErrNotFound)
	s.source.EXPECT().ListItems(ctx, "col-stories").Return([]domain.SourceItem{storyItem("e1", "Forest Walk")}, nil)
	s.source.EXPECT().ListItems(ctx, "col-tags").Return([]domain.SourceItem{}, nil)

	entity, err := s.reader.GetBySlug(ctx, domain.KindStory, "e1-slug")

	s.NoError(err)
	s.Equal("Forest Walk", entity.Title)
}

func (s *ReaderTestSuite) TestGetBySlug_NotFoundAnywhere() {
	ctx := context.Background()

	s.entities.EXPECT().GetBySlug(ctx, domain.KindStory, "missing").Return(nil, domain.ErrNotFound)
	s.source.EXPECT().ListItems(ctx, "col-stories").Return([]domain.SourceItem{storyItem("e1", "Forest Walk")}, nil)
	s.source.EXPECT().ListItems(ctx, "col-tags").Return([]domain.SourceItem{}, nil)

	_, err := s.reader.GetBySlug(ctx, domain.KindStory, "missing")

	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *ReaderTestSuite) TestTags_LiveFallbackSortedByName() {
	ctx := context.Background()

	s.tags.EXPECT().All(ctx).Return([]domain.Tag{}, nil)
	s.source.EXPECT().ListItems(ctx, "col-tags").Return([]domain.SourceItem{tagItem("t2", "Walks"), tagItem("t1", "Nature")}, nil)

	tags, err := s.reader.Tags(ctx)

	s.NoError(err)
	s.Require().Len(tags, 2)
	s.Equal("Nature", tags[0].Name)
}

func (s *ReaderTestSuite) TestSyncStatus() {
	ctx := context.Background()
	states := []domain.SyncState{{Kind: domain.KindStory, LastCount: 3}}

	s.syncState.EXPECT().List(ctx).Return(states, nil)

	got, err := s.reader.SyncStatus(ctx)

	s.NoError(err)
	s.Equal(states, got)
}

func TestSortEntities(t *testing.T) {
	day := func(d int) *time.Time {
		return testutil.Ptr(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC))
	}

	t.Run("stories newest first, undated last", func(t *testing.T) {
		entities := []domain.Entity{
			{Title: "Undated", Details: domain.StoryDetails{}},
			{Title: "Old", Details: domain.StoryDetails{PublishedAt: day(1)}},
			{Title: "New", Details: domain.StoryDetails{PublishedAt: day(5)}},
		}
		SortEntities(domain.KindStory, entities)
		assert.Equal(t, []string{"New", "Old", "Undated"}, titles(entities))
	})

	t.Run("initiatives earliest start first, undated last", func(t *testing.T) {
		entities := []domain.Entity{
			{Title: "B", Details: domain.InitiativeDetails{}},
			{Title: "Late", Details: domain.InitiativeDetails{StartDate: day(9)}},
			{Title: "A", Details: domain.InitiativeDetails{}},
			{Title: "Soon", Details: domain.InitiativeDetails{StartDate: day(2)}},
		}
		SortEntities(domain.KindInitiative, entities)
		assert.Equal(t, []string{"Soon", "Late", "A", "B"}, titles(entities))
	})

	t.Run("places by title", func(t *testing.T) {
		entities := []domain.Entity{{Title: "cafe"}, {Title: "Bakery"}, {Title: "Apothecary"}}
		SortEntities(domain.KindPlace, entities)
		assert.Equal(t, []string{"Apothecary", "Bakery", "cafe"}, titles(entities))
	})
}

func titles(entities []domain.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Title
	}
	return out
}
