package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cms_mirror/internal/domain"
	"cms_mirror/internal/service/mocks"
)

// mockedSuite wires every store and client mock; component suites embed it.
type mockedSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source    *mocks.MockSource
	entities  *mocks.MockEntityStore
	tags      *mocks.MockTagStore
	syncState *mocks.MockSyncStateStore
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher

	upserter    *Upserter
	collections domain.Collections
	logger      *slog.Logger
}

func (s *mockedSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.entities = mocks.NewMockEntityStore(s.ctrl)
	s.tags = mocks.NewMockTagStore(s.ctrl)
	s.syncState = mocks.NewMockSyncStateStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.collections = domain.Collections{
		domain.KindTag:        "col-tags",
		domain.KindStory:      "col-stories",
		domain.KindPlace:      "col-places",
		domain.KindInitiative: "col-initiatives",
	}

	s.upserter = NewUpserter(s.entities, s.tags, s.txManager, s.publisher, s.logger)
}

func (s *mockedSuite) TearDownTest() {
	s.ctrl.Finish()
}

// expectTransaction runs the transactional closure inline.
func (s *mockedSuite) expectTransaction() *gomock.Call {
	return s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func storyItem(id, title string, tags ...string) domain.SourceItem {
	refs := make([]any, len(tags))
	for i, t := range tags {
		refs[i] = t
	}
	return domain.SourceItem{
		ExternalID:   id,
		CollectionID: "col-stories",
		Fields: map[string]any{
			"name":        title,
			"slug":        id + "-slug",
			"coordinates": "52.01, 4.35",
			"tags":        refs,
		},
	}
}

func tagItem(id, name string) domain.SourceItem {
	return domain.SourceItem{
		ExternalID:   id,
		CollectionID: "col-tags",
		Fields:       map[string]any{"name": name, "slug": id},
	}
}
