package lottery

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/mem"
	"go.dedis.ch/lottery/core/store/prefixed"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/core/txn/signed"
	"go.dedis.ch/lottery/internal/testing/fake"
	"golang.org/x/xerrors"
)

var testInstance = []byte{0xaa, 0xbb}

func TestRegisterContract(t *testing.T) {
	srvc := native.NewExecution()
	RegisterContract(srvc, NewContract())

	require.True(t, srvc.Has(ContractName))
}

func TestContract_UID(t *testing.T) {
	require.Equal(t, "LOTT", NewContract().UID())
}

func TestContract_Deploy(t *testing.T) {
	contract := NewContract(WithMinimum(uint256.NewInt(2)))
	snap := mem.NewSnapshot(nil)

	err := contract.Execute(snap, makeStep(t, "A", CmdDeploy, nil))
	require.NoError(t, err)

	out, err := contract.Query(snap, testInstance, QueryManager)
	require.NoError(t, err)
	require.Equal(t, "fake:PKA", string(out))

	state, err := readState(snap, testInstance)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(2), state.GetMinimum())

	err = contract.Execute(snap, makeStep(t, "B", CmdDeploy, nil))
	require.True(t, xerrors.Is(err, ErrAlreadyDeployed))
	require.EqualError(t, err, "failed to DEPLOY: instance aabb: already deployed")

	err = contract.Execute(mem.NewSnapshot(nil), makeStep(t, "A", CmdDeploy, uint256.NewInt(1)))
	require.True(t, xerrors.Is(err, ErrNotPayable))

	err = contract.Execute(fake.NewBadSnapshot(), makeStep(t, "A", CmdDeploy, nil))
	require.EqualError(t, err, fake.Err("failed to DEPLOY: failed to read state"))

	bad := fake.NewSnapshot()
	bad.ErrWrite = fake.GetError()
	err = contract.Execute(bad, makeStep(t, "A", CmdDeploy, nil))
	require.EqualError(t, err, fake.Err("failed to DEPLOY: failed to write state"))
}

func TestContract_Enter(t *testing.T) {
	contract := NewContract()
	snap := deploy(t, contract)

	err := contract.Execute(snap, makeStep(t, "B", CmdEnter, MinimumEntry))
	require.NoError(t, err)

	err = contract.Execute(snap, makeStep(t, "C", CmdEnter, MinimumEntry))
	require.NoError(t, err)

	out, err := contract.Query(snap, testInstance, QueryPlayers)
	require.NoError(t, err)
	require.Equal(t, `["fake:PKB","fake:PKC"]`, string(out))

	out, err = contract.Query(snap, testInstance, QueryBalance)
	require.NoError(t, err)
	require.Equal(t, "20000000000000000", string(out))

	err = contract.Execute(snap, makeStep(t, "D", CmdEnter, uint256.NewInt(1)))
	require.True(t, xerrors.Is(err, ErrInsufficientContribution))

	err = contract.Execute(snap, makeStep(t, "D", CmdEnter, nil))
	require.True(t, xerrors.Is(err, ErrInsufficientContribution))

	out, err = contract.Query(snap, testInstance, QueryPlayers)
	require.NoError(t, err)
	require.Equal(t, `["fake:PKB","fake:PKC"]`, string(out))

	err = contract.Execute(mem.NewSnapshot(nil), makeStep(t, "B", CmdEnter, MinimumEntry))
	require.EqualError(t, err, "failed to ENTER: instance aabb not found")
}

func TestContract_Pick(t *testing.T) {
	contract := NewContract(WithSource(&fakeSource{index: 1}))
	snap := deploy(t, contract)

	enter(t, contract, snap, "B")
	enter(t, contract, snap, "C")
	enter(t, contract, snap, "D")

	err := contract.Execute(snap, makeStep(t, "A", CmdPick, nil))
	require.NoError(t, err)

	balance, err := bank.Balance(snap, []byte("fake:PKC"))
	require.NoError(t, err)
	require.Equal(t, "0.03ether", bank.FormatValue(balance))

	balance, err = bank.Balance(snap, bank.InstanceAccount(testInstance))
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	out, err := contract.Query(snap, testInstance, QueryPlayers)
	require.NoError(t, err)
	require.Equal(t, `[]`, string(out))

	out, err = contract.Query(snap, testInstance, QueryBalance)
	require.NoError(t, err)
	require.Equal(t, "0", string(out))

	out, err = contract.Query(snap, testInstance, QueryLastWinner)
	require.NoError(t, err)
	require.Equal(t, "fake:PKC", string(out))
}

func TestContract_PickFailures(t *testing.T) {
	contract := NewContract(WithSource(&fakeSource{}))
	snap := deploy(t, contract)

	err := contract.Execute(snap, makeStep(t, "A", CmdPick, nil))
	require.True(t, xerrors.Is(err, ErrEmptyPool))

	enter(t, contract, snap, "B")

	err = contract.Execute(snap, makeStep(t, "B", CmdPick, nil))
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	err = contract.Execute(snap, makeStep(t, "A", CmdPick, uint256.NewInt(1)))
	require.True(t, xerrors.Is(err, ErrNotPayable))
	require.EqualError(t, err, "failed to PICK: not payable")

	// The value of the entry never reached the instance account.
	require.NoError(t, bank.Debit(snap, bank.InstanceAccount(testInstance), MinimumEntry))

	err = contract.Execute(snap, makeStep(t, "A", CmdPick, nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to PICK: failed to transfer prize")

	out, err := contract.Query(snap, testInstance, QueryPlayers)
	require.NoError(t, err)
	require.Equal(t, `["fake:PKB"]`, string(out))

	err = contract.Execute(mem.NewSnapshot(nil), makeStep(t, "A", CmdPick, nil))
	require.EqualError(t, err, "failed to PICK: instance aabb not found")
}

func TestContract_InvalidArgs(t *testing.T) {
	contract := NewContract()

	tx, err := signed.NewTransaction(0, fake.NewPublicKey("A"))
	require.NoError(t, err)

	err = contract.Execute(mem.NewSnapshot(nil), execution.Step{Current: tx})
	require.EqualError(t, err, "'go.dedis.ch/lottery.InstanceArg' not found in tx arg")

	tx, err = signed.NewTransaction(0, fake.NewPublicKey("A"),
		signed.WithArg(native.InstanceArg, testInstance))
	require.NoError(t, err)

	err = contract.Execute(mem.NewSnapshot(nil), execution.Step{Current: tx})
	require.EqualError(t, err, "'lottery:command' not found in tx arg")

	err = contract.Execute(mem.NewSnapshot(nil), execution.Step{Current: badIdentityTx{}})
	require.EqualError(t, err, fake.Err("failed to marshal identity"))

	err = contract.Execute(mem.NewSnapshot(nil), makeStep(t, "A", Command("UNKNOWN"), nil))
	require.EqualError(t, err, "unknown command: UNKNOWN")
}

func TestContract_Query(t *testing.T) {
	contract := NewContract()
	snap := deploy(t, contract)

	_, err := contract.Query(snap, testInstance, "unknown")
	require.EqualError(t, err, "unknown method 'unknown'")

	_, err = contract.Query(snap, []byte{1}, QueryPlayers)
	require.EqualError(t, err, "instance 01 not found")

	_, err = contract.Query(fake.NewBadSnapshot(), testInstance, QueryPlayers)
	require.EqualError(t, err, fake.Err("failed to read state"))

	require.NoError(t, snap.Set(stateKeyOf(testInstance), []byte("{")))

	_, err = contract.Query(snap, testInstance, QueryPlayers)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode state")
}

func TestManifest(t *testing.T) {
	require.Contains(t, string(Manifest), "native: "+ContractName)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeStep(t *testing.T, signer string, cmd Command, value *uint256.Int) execution.Step {
	opts := []signed.TransactionOption{
		signed.WithArg(native.ContractArg, []byte(ContractName)),
		signed.WithArg(native.InstanceArg, testInstance),
		signed.WithArg(CmdArg, []byte(cmd)),
	}

	if value != nil {
		opts = append(opts, signed.WithArg(native.ValueArg, value.Bytes()))
	}

	tx, err := signed.NewTransaction(0, fake.NewPublicKey(signer), opts...)
	require.NoError(t, err)

	return execution.Step{
		Current:    tx,
		Previous:   []txn.Transaction{},
		BlockIndex: 1,
		Timestamp:  time.Unix(1600000000, 0),
	}
}

func deploy(t *testing.T, contract Contract) store.Snapshot {
	snap := mem.NewSnapshot(nil)

	err := contract.Execute(snap, makeStep(t, "A", CmdDeploy, nil))
	require.NoError(t, err)

	return snap
}

// enter mimics the ledger that moves the value to the instance account before
// running the command.
func enter(t *testing.T, contract Contract, snap store.Snapshot, signer string) {
	require.NoError(t, bank.Credit(snap, bank.InstanceAccount(testInstance), MinimumEntry))

	err := contract.Execute(snap, makeStep(t, signer, CmdEnter, MinimumEntry))
	require.NoError(t, err)
}

func stateKeyOf(instance []byte) []byte {
	return prefixed.NewPrefixedKey(instance, []byte(stateKey))
}

type badIdentityTx struct {
	txn.Transaction
}

func (badIdentityTx) GetArg(key string) []byte {
	if key == native.InstanceArg {
		return testInstance
	}

	return nil
}

func (badIdentityTx) GetIdentity() access.Identity {
	return fake.NewBadPublicKey()
}
