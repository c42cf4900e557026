// Package lottery implements a native contract that runs a lottery.
//
// Players enter by attaching at least the minimum contribution to the ENTER
// command. The identity that deployed the instance is the manager and it is the
// only one allowed to pick the winner, which receives the whole balance of the
// instance. The players and the balance are then reset for the next round.
//
// Documentation Last Review: 14.10.2026
package lottery

import (
	_ "embed"
	"encoding/json"

	"github.com/holiman/uint256"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/prefixed"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/lottery.Lottery"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "lottery:command"

	// ContractUID is the unique identifier of the contract.
	ContractUID = "LOTT"

	stateKey = "state"
)

// Command defines a type of command for the lottery contract.
type Command string

const (
	// CmdDeploy creates the lottery of an instance. It is sent by the ledger
	// when the instance is deployed.
	CmdDeploy Command = "DEPLOY"

	// CmdEnter adds the sender to the players.
	CmdEnter Command = "ENTER"

	// CmdPick picks the winner and transfers the prize.
	CmdPick Command = "PICK"
)

const (
	// QueryPlayers returns the JSON array of the players.
	QueryPlayers = "getPlayers"

	// QueryManager returns the identity of the manager.
	QueryManager = "manager"

	// QueryBalance returns the balance in wei as a decimal string.
	QueryBalance = "balance"

	// QueryLastWinner returns the identity of the winner of the last draw.
	QueryLastWinner = "lastWinner"
)

// Manifest is the source of the contract that the compiler turns into an
// artifact.
//
//go:embed lottery.yaml
var Manifest []byte

// RegisterContract registers the lottery contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the native contract hosting the lotteries of every deployed
// instance.
//
// - implements native.Contract
type Contract struct {
	source  Source
	minimum *uint256.Int
}

// ContractOption is the type of option to create the contract.
type ContractOption func(*Contract)

// WithSource sets the source of randomness used to pick the winners.
func WithSource(source Source) ContractOption {
	return func(c *Contract) {
		c.source = source
	}
}

// WithMinimum sets the minimum contribution of the lotteries deployed by the
// contract.
func WithMinimum(value *uint256.Int) ContractOption {
	return func(c *Contract) {
		c.minimum = value
	}
}

// NewContract creates a new lottery contract. By default, the winner is picked
// with the ledger source.
func NewContract(opts ...ContractOption) Contract {
	c := Contract{
		source:  NewLedgerSource(),
		minimum: MinimumEntry,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// UID implements native.Contract.
func (c Contract) UID() string {
	return ContractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	instance := step.Current.GetArg(native.InstanceArg)
	if len(instance) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", native.InstanceArg)
	}

	caller, err := step.Current.GetIdentity().MarshalText()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	value := new(uint256.Int).SetBytes(step.Current.GetArg(native.ValueArg))

	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdDeploy:
		err = c.deploy(snap, instance, string(caller), value)
		if err != nil {
			return xerrors.Errorf("failed to DEPLOY: %w", err)
		}
	case CmdEnter:
		err = c.enter(snap, instance, string(caller), value)
		if err != nil {
			return xerrors.Errorf("failed to ENTER: %w", err)
		}
	case CmdPick:
		err = c.pick(snap, step, instance, string(caller), value)
		if err != nil {
			return xerrors.Errorf("failed to PICK: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// Query implements native.Contract. It returns the result of a read-only
// method of the instance.
func (c Contract) Query(snap store.Readable, instance []byte, method string) ([]byte, error) {
	state, err := readState(snap, instance)
	if err != nil {
		return nil, err
	}

	switch method {
	case QueryPlayers:
		return json.Marshal(state.GetPlayers())
	case QueryManager:
		return []byte(state.GetManager()), nil
	case QueryBalance:
		return []byte(state.GetBalance().ToBig().String()), nil
	case QueryLastWinner:
		return []byte(state.GetLastWinner()), nil
	default:
		return nil, xerrors.Errorf("unknown method '%s'", method)
	}
}

func (c Contract) deploy(snap store.Snapshot, instance []byte, caller string, value *uint256.Int) error {
	if !value.IsZero() {
		return ErrNotPayable
	}

	data, err := prefixed.NewReadable(string(instance), snap).Get([]byte(stateKey))
	if err != nil {
		return xerrors.Errorf("failed to read state: %v", err)
	}

	if data != nil {
		return xerrors.Errorf("instance %x: %w", instance, ErrAlreadyDeployed)
	}

	state := NewState(caller, WithMinimumEntry(c.minimum))

	err = writeState(snap, instance, state)
	if err != nil {
		return err
	}

	lottery.Logger.Info().
		Str("contract", "lottery").
		Hex("instance", instance).
		Str("manager", caller).
		Msg("lottery deployed")

	return nil
}

func (c Contract) enter(snap store.Snapshot, instance []byte, caller string, value *uint256.Int) error {
	state, err := readState(snap, instance)
	if err != nil {
		return err
	}

	err = state.Enter(caller, value)
	if err != nil {
		return err
	}

	err = writeState(snap, instance, state)
	if err != nil {
		return err
	}

	lottery.Logger.Info().
		Str("contract", "lottery").
		Hex("instance", instance).
		Str("player", caller).
		Str("value", bank.FormatValue(value)).
		Msg("player entered")

	return nil
}

func (c Contract) pick(snap store.Snapshot, step execution.Step,
	instance []byte, caller string, value *uint256.Int) error {

	if !value.IsZero() {
		return ErrNotPayable
	}

	state, err := readState(snap, instance)
	if err != nil {
		return err
	}

	draw := Draw{
		BlockIndex: step.BlockIndex,
		Timestamp:  step.Timestamp,
	}

	winner, err := state.PickWinner(caller, c.source, draw)
	if err != nil {
		return err
	}

	err = bank.Transfer(snap, bank.InstanceAccount(instance), []byte(winner.Player), winner.Prize)
	if err != nil {
		return xerrors.Errorf("failed to transfer prize: %v", err)
	}

	err = writeState(snap, instance, state)
	if err != nil {
		return err
	}

	lottery.Logger.Info().
		Str("contract", "lottery").
		Hex("instance", instance).
		Str("winner", winner.Player).
		Str("prize", bank.FormatValue(winner.Prize)).
		Msg("winner picked")

	return nil
}

func readState(snap store.Readable, instance []byte) (*State, error) {
	data, err := prefixed.NewReadable(string(instance), snap).Get([]byte(stateKey))
	if err != nil {
		return nil, xerrors.Errorf("failed to read state: %v", err)
	}

	if data == nil {
		return nil, xerrors.Errorf("instance %x not found", instance)
	}

	state := &State{}

	err = json.Unmarshal(data, state)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode state: %v", err)
	}

	return state, nil
}

func writeState(snap store.Snapshot, instance []byte, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return xerrors.Errorf("failed to encode state: %v", err)
	}

	err = prefixed.NewSnapshot(string(instance), snap).Set([]byte(stateKey), data)
	if err != nil {
		return xerrors.Errorf("failed to write state: %v", err)
	}

	return nil
}
