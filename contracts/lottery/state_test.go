package lottery

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestState_New(t *testing.T) {
	state := NewState("A")

	require.Equal(t, "A", state.GetManager())
	require.Empty(t, state.GetPlayers())
	require.NotNil(t, state.GetPlayers())
	require.True(t, state.GetBalance().IsZero())
	require.Equal(t, MinimumEntry, state.GetMinimum())

	state = NewState("A", WithMinimumEntry(uint256.NewInt(5)))
	require.Equal(t, uint256.NewInt(5), state.GetMinimum())
}

func TestState_Enter(t *testing.T) {
	state := NewState("A")

	err := state.Enter("B", MinimumEntry)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, state.GetPlayers())
	require.Equal(t, MinimumEntry, state.GetBalance())

	err = state.Enter("C", bank.NewValue(1, bank.Ether))
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C"}, state.GetPlayers())
	require.Equal(t, "1.01ether", bank.FormatValue(state.GetBalance()))
}

func TestState_EnterSameIdentity(t *testing.T) {
	state := NewState("A")

	require.NoError(t, state.Enter("B", MinimumEntry))
	require.NoError(t, state.Enter("B", MinimumEntry))

	require.Equal(t, []string{"B", "B"}, state.GetPlayers())
	require.Equal(t, "0.02ether", bank.FormatValue(state.GetBalance()))
}

func TestState_EnterBelowMinimum(t *testing.T) {
	state := NewState("A")
	require.NoError(t, state.Enter("B", MinimumEntry))

	below := new(uint256.Int).Sub(MinimumEntry, uint256.NewInt(1))

	err := state.Enter("C", below)
	require.True(t, xerrors.Is(err, ErrInsufficientContribution))
	require.EqualError(t, err,
		"entry of 0.009999999999999999ether is below 0.01ether: insufficient contribution")

	err = state.Enter("C", nil)
	require.True(t, xerrors.Is(err, ErrInsufficientContribution))

	require.Equal(t, []string{"B"}, state.GetPlayers())
	require.Equal(t, MinimumEntry, state.GetBalance())
}

func TestState_EnterOverflow(t *testing.T) {
	state := NewState("A")
	require.NoError(t, state.Enter("B", new(uint256.Int).SetAllOne()))

	err := state.Enter("C", MinimumEntry)
	require.EqualError(t, err, "balance overflow")
	require.Len(t, state.GetPlayers(), 1)
}

func TestState_PickWinner(t *testing.T) {
	state := NewState("A")
	require.NoError(t, state.Enter("B", MinimumEntry))
	require.NoError(t, state.Enter("C", MinimumEntry))
	require.NoError(t, state.Enter("D", MinimumEntry))

	source := &fakeSource{index: 1}

	winner, err := state.PickWinner("A", source, Draw{BlockIndex: 5})
	require.NoError(t, err)
	require.Equal(t, 1, winner.Index)
	require.Equal(t, "C", winner.Player)
	require.Equal(t, "0.03ether", bank.FormatValue(winner.Prize))

	require.Equal(t, []string{"B", "C", "D"}, source.draw.Players)
	require.Equal(t, uint64(5), source.draw.BlockIndex)

	require.Empty(t, state.GetPlayers())
	require.True(t, state.GetBalance().IsZero())
	require.Equal(t, "C", state.GetLastWinner())

	// The state can be reused for another round.
	require.NoError(t, state.Enter("B", MinimumEntry))
	require.Equal(t, []string{"B"}, state.GetPlayers())
}

func TestState_PickWinnerUnauthorized(t *testing.T) {
	state := NewState("A")
	require.NoError(t, state.Enter("B", MinimumEntry))

	_, err := state.PickWinner("B", &fakeSource{}, Draw{})
	require.True(t, xerrors.Is(err, ErrUnauthorized))
	require.EqualError(t, err, "'B' is not the manager: unauthorized")

	require.Equal(t, []string{"B"}, state.GetPlayers())
	require.Equal(t, MinimumEntry, state.GetBalance())

	// Authorization is checked before the pool.
	_, err = NewState("A").PickWinner("B", &fakeSource{}, Draw{})
	require.True(t, xerrors.Is(err, ErrUnauthorized))
}

func TestState_PickWinnerEmptyPool(t *testing.T) {
	state := NewState("A")

	_, err := state.PickWinner("A", &fakeSource{}, Draw{})
	require.True(t, xerrors.Is(err, ErrEmptyPool))
	require.EqualError(t, err, "no player to pick from: empty pool")
}

func TestState_PickWinnerBadSource(t *testing.T) {
	state := NewState("A")
	require.NoError(t, state.Enter("B", MinimumEntry))

	_, err := state.PickWinner("A", &fakeSource{err: fake.GetError()}, Draw{})
	require.EqualError(t, err, fake.Err("source failed"))

	_, err = state.PickWinner("A", &fakeSource{index: 1}, Draw{})
	require.EqualError(t, err, "index 1 out of range [0, 1)")

	_, err = state.PickWinner("A", &fakeSource{index: -1}, Draw{})
	require.EqualError(t, err, "index -1 out of range [0, 1)")

	require.Equal(t, []string{"B"}, state.GetPlayers())
	require.Equal(t, MinimumEntry, state.GetBalance())
}

func TestState_GetPlayersIsCopy(t *testing.T) {
	state := NewState("A")
	require.NoError(t, state.Enter("B", MinimumEntry))

	players := state.GetPlayers()
	players[0] = "X"

	require.Equal(t, []string{"B"}, state.GetPlayers())
}

func TestState_JSON(t *testing.T) {
	state := NewState("A", WithMinimumEntry(uint256.NewInt(3)))
	require.NoError(t, state.Enter("B", uint256.NewInt(7)))

	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"manager":"A","players":["B"],"balance":"7","minimum":"3"}`, string(data))

	other := &State{}
	require.NoError(t, json.Unmarshal(data, other))
	require.Equal(t, state, other)

	_, err = state.PickWinner("A", &fakeSource{}, Draw{})
	require.NoError(t, err)

	data, err = json.Marshal(state)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"manager":"A","players":[],"balance":"0","minimum":"3","winner":"B"}`, string(data))

	require.NoError(t, json.Unmarshal(data, other))
	require.Equal(t, "B", other.GetLastWinner())

	err = json.Unmarshal([]byte(`{"manager":"A","balance":"0","minimum":"1"}`), other)
	require.NoError(t, err)
	require.NotNil(t, other.GetPlayers())

	err = other.UnmarshalJSON([]byte(`[]`))
	require.Error(t, err)

	err = other.UnmarshalJSON([]byte(`{"balance":"abc","minimum":"1"}`))
	require.EqualError(t, err, "invalid balance: invalid value 'abc'")

	err = other.UnmarshalJSON([]byte(`{"balance":"1","minimum":"x"}`))
	require.EqualError(t, err, "invalid minimum: invalid value 'x'")
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeSource struct {
	index int
	err   error
	draw  Draw
}

func (s *fakeSource) Pick(draw Draw) (int, error) {
	s.draw = draw
	return s.index, s.err
}

