package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cms_mirror/internal/domain"
)

type UpserterTestSuite struct {
	mockedSuite
}

func TestUpserterTestSuite(t *testing.T) {
	suite.Run(t, new(UpserterTestSuite))
}

func (s *UpserterTestSuite) TestApply_CreatesWithResolvedTags() {
	ctx := context.Background()
	item := storyItem("e1", "Forest Walk", "t1", "t9")

	s.tags.EXPECT().LookupByExternalIDs(ctx, []string{"t1", "t9"}).Return(map[string]domain.Tag{
		"t1": {ID: "tag-1", ExternalID: "t1", Name: "Nature"},
	}, nil)
	s.expectTransaction()
	s.entities.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.Entity) (string, bool, error) {
			s.Equal("e1", e.ExternalID)
			s.Equal("Forest Walk", e.Title)
			s.Equal(52.01, e.Latitude)
			s.Equal(4.35, e.Longitude)
			return "ent-1", true, nil
		},
	)
	s.entities.EXPECT().ReplaceTags(ctx, domain.KindStory, "ent-1", []string{"tag-1"}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Change) error {
			s.Equal(domain.ActionCreate, c.Action)
			s.Equal(domain.KindStory, c.Kind)
			s.Require().NotNil(c.Entity)
			s.Equal("ent-1", c.Entity.ID)
			s.Len(c.Entity.Tags, 1)
			return nil
		},
	)

	outcome, err := s.upserter.Apply(ctx, domain.KindStory, item, nil)

	s.NoError(err)
	s.Equal(OutcomeCreated, outcome)
}

func (s *UpserterTestSuite) TestApply_UsesSuppliedLookup() {
	ctx := context.Background()
	lookup := map[string]domain.Tag{"t2": {ID: "tag-2", ExternalID: "t2", Name: "Walks"}}

	s.expectTransaction()
	s.entities.EXPECT().Upsert(ctx, gomock.Any()).Return("ent-1", false, nil)
	s.entities.EXPECT().ReplaceTags(ctx, domain.KindStory, "ent-1", []string{"tag-2"}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	outcome, err := s.upserter.Apply(ctx, domain.KindStory, storyItem("e1", "Forest Walk", "t2"), lookup)

	s.NoError(err)
	s.Equal(OutcomeUpdated, outcome)
}

func (s *UpserterTestSuite) TestApply_NoTagsClearsJunction() {
	ctx := context.Background()

	s.expectTransaction()
	s.entities.EXPECT().Upsert(ctx, gomock.Any()).Return("ent-1", false, nil)
	s.entities.EXPECT().ReplaceTags(ctx, domain.KindStory, "ent-1", []string{}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	outcome, err := s.upserter.Apply(ctx, domain.KindStory, storyItem("e1", "Forest Walk"), nil)

	s.NoError(err)
	s.Equal(OutcomeUpdated, outcome)
}

func (s *UpserterTestSuite) TestApply_InvalidCoordinatesSkipped() {
	item := domain.SourceItem{
		ExternalID: "e1",
		Fields:     map[string]any{"name": "Nowhere", "coordinates": "not-a-number, 4.3"},
	}

	outcome, err := s.upserter.Apply(context.Background(), domain.KindStory, item, nil)

	s.NoError(err)
	s.Equal(OutcomeSkipped, outcome)
}

func (s *UpserterTestSuite) TestApply_MissingTitleSkipped() {
	item := domain.SourceItem{
		ExternalID: "p1",
		Fields:     map[string]any{"latitude": 1.0, "longitude": 2.0},
	}

	outcome, err := s.upserter.Apply(context.Background(), domain.KindPlace, item, nil)

	s.NoError(err)
	s.Equal(OutcomeSkipped, outcome)
}

func (s *UpserterTestSuite) TestApply_StoreErrorNotPublished() {
	ctx := context.Background()

	s.expectTransaction()
	s.entities.EXPECT().Upsert(ctx, gomock.Any()).Return("ent-1", true, nil)
	s.entities.EXPECT().ReplaceTags(ctx, domain.KindStory, "ent-1", []string{}).Return(errors.New("fk violation"))

	_, err := s.upserter.Apply(ctx, domain.KindStory, storyItem("e1", "Forest Walk"), map[string]domain.Tag{})

	s.Error(err)
	s.Contains(err.Error(), "replace tags")
}

func (s *UpserterTestSuite) TestApply_PublishFailureIgnored() {
	ctx := context.Background()

	s.expectTransaction()
	s.entities.EXPECT().Upsert(ctx, gomock.Any()).Return("ent-1", true, nil)
	s.entities.EXPECT().ReplaceTags(ctx, domain.KindStory, "ent-1", []string{}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("broker down"))

	outcome, err := s.upserter.Apply(ctx, domain.KindStory, storyItem("e1", "Forest Walk"), nil)

	s.NoError(err)
	s.Equal(OutcomeCreated, outcome)
}

func (s *UpserterTestSuite) TestApply_WithoutPublisher() {
	ctx := context.Background()
	upserter := NewUpserter(s.entities, s.tags, s.txManager, nil, s.logger)

	s.expectTransaction()
	s.entities.EXPECT().Upsert(ctx, gomock.Any()).Return("ent-1", true, nil)
	s.entities.EXPECT().ReplaceTags(ctx, domain.KindStory, "ent-1", []string{}).Return(nil)

	outcome, err := upserter.Apply(ctx, domain.KindStory, storyItem("e1", "Forest Walk"), nil)

	s.NoError(err)
	s.Equal(OutcomeCreated, outcome)
}

func (s *UpserterTestSuite) TestApplyTag() {
	ctx := context.Background()

	s.tags.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, t *domain.Tag) (string, bool, error) {
			s.Equal("t1", t.ExternalID)
			s.Equal("Nature", t.Name)
			return "tag-1", true, nil
		},
	)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Change) error {
			s.Equal(domain.KindTag, c.Kind)
			s.Equal("tag-1", c.Tag.ID)
			return nil
		},
	)

	outcome, err := s.upserter.ApplyTag(ctx, tagItem("t1", "Nature"))

	s.NoError(err)
	s.Equal(OutcomeCreated, outcome)
}

func (s *UpserterTestSuite) TestApplyTag_MissingNameSkipped() {
	outcome, err := s.upserter.ApplyTag(context.Background(), domain.SourceItem{ExternalID: "t1", Fields: map[string]any{}})

	s.NoError(err)
	s.Equal(OutcomeSkipped, outcome)
}

func (s *UpserterTestSuite) TestDeleteEntity() {
	ctx := context.Background()

	s.entities.EXPECT().DeleteByExternalID(ctx, domain.KindPlace, "p1").Return(true, nil)
	s.publisher.EXPECT().Publish(ctx, &domain.Change{Action: domain.ActionDelete, Kind: domain.KindPlace, ExternalID: "p1"}).Return(nil)

	deleted, err := s.upserter.DeleteEntity(ctx, domain.KindPlace, "p1")

	s.NoError(err)
	s.True(deleted)
}

func (s *UpserterTestSuite) TestDeleteEntity_Absent() {
	ctx := context.Background()

	s.entities.EXPECT().DeleteByExternalID(ctx, domain.KindPlace, "p1").Return(false, nil)

	deleted, err := s.upserter.DeleteEntity(ctx, domain.KindPlace, "p1")

	s.NoError(err)
	s.False(deleted)
}

func (s *UpserterTestSuite) TestDeleteTag() {
	ctx := context.Background()

	s.tags.EXPECT().DeleteByExternalID(ctx, "t1").Return(true, nil)
	s.publisher.EXPECT().Publish(ctx, &domain.Change{Action: domain.ActionDelete, Kind: domain.KindTag, ExternalID: "t1"}).Return(nil)

	deleted, err := s.upserter.DeleteTag(ctx, "t1")

	s.NoError(err)
	s.True(deleted)
}

func (s *UpserterTestSuite) TestPrune_PublishesEachRemoval() {
	ctx := context.Background()

	s.tags.EXPECT().PruneExcept(ctx, []string{"t1"}).Return([]string{"t2", "t3"}, nil)
	s.publisher.EXPECT().Publish(ctx, &domain.Change{Action: domain.ActionDelete, Kind: domain.KindTag, ExternalID: "t2"}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, &domain.Change{Action: domain.ActionDelete, Kind: domain.KindTag, ExternalID: "t3"}).Return(nil)

	removed, err := s.upserter.Prune(ctx, domain.KindTag, []string{"t1"})

	s.NoError(err)
	s.Equal(2, removed)
}

func (s *UpserterTestSuite) TestPrune_StoreErrorPublishesNothing() {
	ctx := context.Background()

	s.entities.EXPECT().PruneExcept(ctx, domain.KindPlace, []string{}).Return(nil, errors.New("lock timeout"))

	_, err := s.upserter.Prune(ctx, domain.KindPlace, []string{})

	s.ErrorContains(err, "prune place")
}
