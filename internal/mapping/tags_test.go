package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cms_mirror/internal/domain"
)

func TestResolveTags(t *testing.T) {
	lookup := TagLookup([]domain.Tag{
		{ID: "l1", ExternalID: "t1", Name: "Nature"},
		{ID: "l2", ExternalID: "t2", Name: "Food"},
	})

	got := ResolveTags([]string{"t2", "missing", "t1", "t2"}, lookup)

	assert.Len(t, got, 2)
	assert.Equal(t, "l2", got[0].ID)
	assert.Equal(t, "l1", got[1].ID)
}

func TestResolveTags_Empty(t *testing.T) {
	assert.Empty(t, ResolveTags(nil, nil))
	assert.Empty(t, ResolveTags([]string{"t1"}, map[string]domain.Tag{}))
}
