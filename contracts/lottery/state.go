package lottery

import (
	"encoding/json"

	"github.com/holiman/uint256"
	"go.dedis.ch/lottery/core/bank"
	"golang.org/x/xerrors"
)

var (
	// ErrInsufficientContribution is returned when an entry is below the
	// minimum contribution.
	ErrInsufficientContribution = xerrors.New("insufficient contribution")

	// ErrUnauthorized is returned when someone else than the manager tries to
	// pick the winner.
	ErrUnauthorized = xerrors.New("unauthorized")

	// ErrEmptyPool is returned when the winner is picked without any player.
	ErrEmptyPool = xerrors.New("empty pool")

	// ErrNotPayable is returned when a value is attached to a command that
	// does not accept one.
	ErrNotPayable = xerrors.New("not payable")

	// ErrAlreadyDeployed is returned when the instance already holds a
	// lottery.
	ErrAlreadyDeployed = xerrors.New("already deployed")
)

// MinimumEntry is the default minimum contribution to enter, 0.01 ether.
var MinimumEntry = bank.NewValue(10, bank.Unit{Decimals: 15})

// Winner is the outcome of a successful draw.
type Winner struct {
	Index  int
	Player string
	Prize  *uint256.Int
}

// State is the state of one lottery. Players are stored by the text form of
// their identity, in the order of their entries.
type State struct {
	manager string
	players []string
	balance *uint256.Int
	minimum *uint256.Int
	winner  string
}

// StateOption is the type of option to create a state.
type StateOption func(*State)

// WithMinimumEntry sets the minimum contribution to enter the lottery.
func WithMinimumEntry(value *uint256.Int) StateOption {
	return func(s *State) {
		s.minimum = new(uint256.Int).Set(value)
	}
}

// NewState returns a lottery managed by the given identity, without any player.
func NewState(manager string, opts ...StateOption) *State {
	s := &State{
		manager: manager,
		players: []string{},
		balance: new(uint256.Int),
		minimum: new(uint256.Int).Set(MinimumEntry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetManager returns the identity of the manager.
func (s *State) GetManager() string {
	return s.manager
}

// GetPlayers returns a copy of the players in the order they entered.
func (s *State) GetPlayers() []string {
	return append([]string{}, s.players...)
}

// GetBalance returns the amount accumulated since the last draw.
func (s *State) GetBalance() *uint256.Int {
	return new(uint256.Int).Set(s.balance)
}

// GetLastWinner returns the winner of the last draw, or an empty string when
// there has been none.
func (s *State) GetLastWinner() string {
	return s.winner
}

// GetMinimum returns the minimum contribution to enter.
func (s *State) GetMinimum() *uint256.Int {
	return new(uint256.Int).Set(s.minimum)
}

// Enter adds the caller to the players and the value to the balance. The state
// is left untouched if the value is below the minimum.
func (s *State) Enter(caller string, value *uint256.Int) error {
	if value == nil || value.Lt(s.minimum) {
		return xerrors.Errorf("entry of %s is below %s: %w",
			bank.FormatValue(value), bank.FormatValue(s.minimum), ErrInsufficientContribution)
	}

	balance, overflow := new(uint256.Int).AddOverflow(s.balance, value)
	if overflow {
		return xerrors.New("balance overflow")
	}

	s.players = append(s.players, caller)
	s.balance = balance

	return nil
}

// PickWinner draws a winner among the players with the source. The players and
// the balance are reset only when the draw succeeds. Only the manager can call
// it.
func (s *State) PickWinner(caller string, source Source, draw Draw) (Winner, error) {
	if caller != s.manager {
		return Winner{}, xerrors.Errorf("'%s' is not the manager: %w", caller, ErrUnauthorized)
	}

	if len(s.players) == 0 {
		return Winner{}, xerrors.Errorf("no player to pick from: %w", ErrEmptyPool)
	}

	draw.Players = s.GetPlayers()

	index, err := source.Pick(draw)
	if err != nil {
		return Winner{}, xerrors.Errorf("source failed: %v", err)
	}

	if index < 0 || index >= len(s.players) {
		return Winner{}, xerrors.Errorf("index %d out of range [0, %d)", index, len(s.players))
	}

	winner := Winner{
		Index:  index,
		Player: s.players[index],
		Prize:  s.balance,
	}

	s.players = []string{}
	s.balance = new(uint256.Int)
	s.winner = winner.Player

	return winner, nil
}

type stateJSON struct {
	Manager string   `json:"manager"`
	Players []string `json:"players"`
	Balance string   `json:"balance"`
	Minimum string   `json:"minimum"`
	Winner  string   `json:"winner,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Manager: s.manager,
		Players: s.players,
		Balance: s.balance.ToBig().String(),
		Minimum: s.minimum.ToBig().String(),
		Winner:  s.winner,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var m stateJSON

	err := json.Unmarshal(data, &m)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal: %v", err)
	}

	balance, err := bank.ParseValue(m.Balance)
	if err != nil {
		return xerrors.Errorf("invalid balance: %v", err)
	}

	minimum, err := bank.ParseValue(m.Minimum)
	if err != nil {
		return xerrors.Errorf("invalid minimum: %v", err)
	}

	s.manager = m.Manager
	s.players = m.Players
	s.balance = balance
	s.minimum = minimum
	s.winner = m.Winner

	if s.players == nil {
		s.players = []string{}
	}

	return nil
}
