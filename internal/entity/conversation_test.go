package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_RecordTurn_TracksCounts(t *testing.T) {
	t.Parallel()
	c := &Conversation{}
	c.RecordTurn("a", "hello", 1)
	c.RecordTurn("a", "again", 2)
	c.RecordTurn("b", "reply", 3)

	require.Len(t, c.History, 3)
	assert.Equal(t, 2, c.TurnCounts["a"])
	assert.Equal(t, 1, c.TurnCounts["b"])
}

func TestConversation_RecentTurns(t *testing.T) {
	t.Parallel()
	c := &Conversation{}
	for i := 0; i < 5; i++ {
		c.RecordTurn("a", "line", i)
	}
	recent := c.RecentTurns(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Frame)
	assert.Equal(t, 4, recent[1].Frame)

	assert.Len(t, c.RecentTurns(0), 5)
	assert.Len(t, c.RecentTurns(100), 5)
}

func TestConversation_SuggestNextSpeaker_PrefersLowestCount(t *testing.T) {
	t.Parallel()
	c := &Conversation{Participants: []string{"a", "b", "c"}}
	c.RecordTurn("a", "x", 1)
	c.RecordTurn("a", "x", 2)
	// a has 2 turns, b and c have 0; lowest count wins, ties broken by
	// participant order.
	assert.Equal(t, "b", c.SuggestNextSpeaker())
}

func TestConversation_SuggestNextSpeaker_BlocksThirdConsecutiveTurn(t *testing.T) {
	t.Parallel()
	c := &Conversation{Participants: []string{"a", "b"}}
	c.RecordTurn("b", "x", 1)
	c.RecordTurn("b", "x", 2)
	c.RecordTurn("b", "x", 3)
	c.RecordTurn("a", "x", 4)
	c.RecordTurn("a", "x", 5)
	// a is on a two-turn streak; b must speak next even though a has the
	// lower turn count (a=2, b=3).
	assert.Equal(t, "b", c.SuggestNextSpeaker())
}

func TestConversation_SuggestNextSpeaker_SingleParticipantFallsBack(t *testing.T) {
	t.Parallel()
	c := &Conversation{Participants: []string{"solo"}}
	c.RecordTurn("solo", "x", 1)
	c.RecordTurn("solo", "x", 2)
	assert.Equal(t, "solo", c.SuggestNextSpeaker())
}

func TestConversation_SuggestNextSpeaker_NoParticipants(t *testing.T) {
	t.Parallel()
	c := &Conversation{}
	assert.Equal(t, "", c.SuggestNextSpeaker())
}
