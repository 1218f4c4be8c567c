package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_Description_FollowsDetailLevel(t *testing.T) {
	t.Parallel()
	l := &Location{DescSparse: "sparse", DescPartial: "partial", DescFull: "full"}

	l.Detail = DetailSparse
	assert.Equal(t, "sparse", l.Description())

	l.Detail = DetailPartial
	assert.Equal(t, "partial", l.Description())

	l.Detail = DetailFull
	assert.Equal(t, "full", l.Description())
}

func TestLocation_ExpandDetail_NeverDowngrades(t *testing.T) {
	t.Parallel()
	l := &Location{Detail: DetailSparse}
	l.ExpandDetail()
	assert.Equal(t, DetailPartial, l.Detail)
	l.ExpandDetail()
	assert.Equal(t, DetailFull, l.Detail)
	l.ExpandDetail()
	assert.Equal(t, DetailFull, l.Detail, "expanding past full is a no-op")
}

func TestDetailLevel_Rank_Orders(t *testing.T) {
	t.Parallel()
	assert.True(t, DetailSparse.Rank() < DetailPartial.Rank())
	assert.True(t, DetailPartial.Rank() < DetailFull.Rank())
}

func TestLocation_PresenceTracking(t *testing.T) {
	t.Parallel()
	l := &Location{}
	l.AddPresence("gareth")
	assert.True(t, l.Presence["gareth"])

	l.RemovePresence("gareth")
	assert.False(t, l.Presence["gareth"])
}
