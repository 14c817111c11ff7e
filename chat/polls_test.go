package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreatePollCleansOptions(t *testing.T) {
	board := NewPollBoard()

	_, err := board.Create("alice", "", []string{"a", "b"})
	require.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = board.Create("alice", "pick one", []string{"a", "  ", ""})
	require.ErrorIs(t, err, ErrTooFewOptions)

	poll, err := board.Create("alice", "pick one", []string{" a ", "", "b "})
	require.NoError(t, err)
	require.Equal(t, "alice", poll.CreatedBy)
	require.Len(t, poll.Options, 2)
	require.Equal(t, "a", poll.Options[0].Text)
	require.Equal(t, "b", poll.Options[1].Text)
}

func TestCreatePollCapsOptions(t *testing.T) {
	board := NewPollBoard()

	options := make([]string, 0, MaxPollOptions+3)
	for i := 0; i < MaxPollOptions+3; i++ {
		options = append(options, string(rune('a'+i)))
	}

	poll, err := board.Create("alice", "too many", options)
	require.NoError(t, err)
	require.Len(t, poll.Options, MaxPollOptions)
}

func TestVoteAndRevote(t *testing.T) {
	board := NewPollBoard()

	poll, err := board.Create("alice", "lunch?", []string{"pizza", "sushi"})
	require.NoError(t, err)

	_, err = board.Vote("nonexistent", "u1", poll.Options[0].ID)
	require.ErrorIs(t, err, ErrUnknownPoll)

	_, err = board.Vote(poll.ID, "u1", "nonexistent")
	require.ErrorIs(t, err, ErrUnknownOption)

	updated, err := board.Vote(poll.ID, "u1", poll.Options[0].ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.Options[0].Votes)
	require.Equal(t, 0, updated.Options[1].Votes)

	// A second voter adds to the tally.
	updated, err = board.Vote(poll.ID, "u2", poll.Options[0].ID)
	require.NoError(t, err)
	require.Equal(t, 2, updated.Options[0].Votes)

	// A revote moves the vote instead of adding one.
	updated, err = board.Vote(poll.ID, "u1", poll.Options[1].ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.Options[0].Votes)
	require.Equal(t, 1, updated.Options[1].Votes)
	require.Equal(t, poll.Options[1].ID, updated.VotesByUser["u1"])
}

func TestPollListOrder(t *testing.T) {
	board := NewPollBoard()

	first, err := board.Create("alice", "first?", []string{"y", "n"})
	require.NoError(t, err)
	second, err := board.Create("bob", "second?", []string{"y", "n"})
	require.NoError(t, err)

	polls := board.List()
	require.Len(t, polls, 2)
	require.Equal(t, first.ID, polls[0].ID)
	require.Equal(t, second.ID, polls[1].ID)
}
