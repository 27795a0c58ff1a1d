package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for input, want := range map[string]Kind{
		"story":       KindStory,
		"stories":     KindStory,
		"places":      KindPlace,
		"initiative":  KindInitiative,
		"initiatives": KindInitiative,
		"tags":        KindTag,
	} {
		got, err := ParseKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseKind("posts")
	assert.Error(t, err)
}

func TestKind_IsEntity(t *testing.T) {
	assert.True(t, KindPlace.IsEntity())
	assert.False(t, KindTag.IsEntity())
	assert.True(t, KindTag.Valid())
	assert.False(t, Kind("post").Valid())
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		input string
		want  EventType
		ok    bool
	}{
		{"created", EventCreated, true},
		{"collection_item_changed", EventChanged, true},
		{" Collection_Item_Deleted ", EventDeleted, true},
		{"unpublished", EventUnpublished, true},
		{"published", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseEventType(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	assert.True(t, EventDeleted.IsRemoval())
	assert.True(t, EventUnpublished.IsRemoval())
	assert.False(t, EventChanged.IsRemoval())
}

func TestCollections_KindFor(t *testing.T) {
	c := Collections{KindStory: "col-1", KindTag: "col-2"}

	kind, ok := c.KindFor("col-2")
	assert.True(t, ok)
	assert.Equal(t, KindTag, kind)

	_, ok = c.KindFor("col-9")
	assert.False(t, ok)

	_, ok = c.KindFor("")
	assert.False(t, ok)
}

func TestSourceItem_Published(t *testing.T) {
	assert.True(t, SourceItem{}.Published())
	assert.False(t, SourceItem{Draft: true}.Published())
	assert.False(t, SourceItem{Archived: true}.Published())
}
