// Package simulated implements a ledger client that runs the contracts locally.
//
// The ledger starts with funded accounts described by a genesis. Every
// transaction is processed in its own block: the signature and the nonce are
// verified first, then the attached value is moved to the instance and the
// native contract is executed. The changes are committed only if the contract
// accepts the transaction. A rejected transaction still consumes its nonce and
// its block.
//
// Documentation Last Review: 14.10.2026
package simulated

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/compiler"
	"go.dedis.ch/lottery/core"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/mem"
	"go.dedis.ch/lottery/core/store/prefixed"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/core/txn/signed"
	"go.dedis.ch/lottery/crypto"
	"golang.org/x/xerrors"
)

const (
	ledgerPrefix   = "ledger"
	noncePrefix    = "nonce"
	instancePrefix = "instance"

	keyGenesis = "genesis"
	keyBlock   = "block"
)

// defines prometheus metrics
var (
	promTxs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_ledger_transactions_total",
		Help: "total number of processed transactions",
	}, []string{"status"})

	promBlocks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lottery_ledger_blocks_total",
		Help: "index of the last block",
	})
)

func init() {
	lottery.PromCollectors = append(lottery.PromCollectors, promTxs, promBlocks)
}

// errRejected aborts the stage of a transaction refused by the contract.
var errRejected = xerrors.New("rejected")

// Ledger is a local ledger.
//
// - implements ledger.Client
type Ledger struct {
	sync.Mutex

	store   store.Stager
	exec    *native.Service
	signers []crypto.Signer
	clock   func() time.Time
	logger  zerolog.Logger
	watcher *core.Watcher
}

type config struct {
	store store.Stager
	clock func() time.Time
}

// Option is the type of option to create a ledger.
type Option func(*config)

// WithStore sets the store of the ledger. It defaults to an in-memory store.
func WithStore(s store.Stager) Option {
	return func(cfg *config) {
		cfg.store = s
	}
}

// WithClock sets the function that gives the timestamp of the blocks.
func WithClock(clock func() time.Time) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

// NewLedger creates a ledger that runs the contracts of the execution service.
// The accounts of the genesis are funded when the store is empty.
func NewLedger(exec *native.Service, genesis Genesis, opts ...Option) (*Ledger, error) {
	cfg := config{
		clock: time.Now,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.store == nil {
		cfg.store = mem.NewStore()
	}

	err := genesis.Validate()
	if err != nil {
		return nil, xerrors.Errorf("invalid genesis: %v", err)
	}

	l := &Ledger{
		store:   cfg.store,
		exec:    exec,
		signers: genesis.Signers(),
		clock:   cfg.clock,
		logger:  lottery.Logger.With().Str("ledger", "simulated").Logger(),
		watcher: core.NewWatcher(),
	}

	err = l.init(genesis)
	if err != nil {
		return nil, xerrors.Errorf("failed to apply genesis: %v", err)
	}

	return l, nil
}

// Watch subscribes the observer to the receipts of the processed transactions,
// accepted or rejected. The observer is called while a transaction holds the
// ledger, so it must not send a transaction itself.
func (l *Ledger) Watch(observer core.Observer) {
	l.watcher.Add(observer)
}

// Unwatch unsubscribes the observer.
func (l *Ledger) Unwatch(observer core.Observer) {
	l.watcher.Remove(observer)
}

// Accounts returns the signers of the genesis accounts.
func (l *Ledger) Accounts() []crypto.Signer {
	return append([]crypto.Signer{}, l.signers...)
}

// GetBlockIndex returns the index of the last block.
func (l *Ledger) GetBlockIndex() (uint64, error) {
	data, err := prefixed.NewReadable(ledgerPrefix, l.store).Get([]byte(keyBlock))
	if err != nil {
		return 0, xerrors.Errorf("failed to read block: %v", err)
	}

	return decodeUint64(data), nil
}

// GetNonce implements ledger.Client. It returns the nonce expected for the next
// transaction of the identity.
func (l *Ledger) GetNonce(identity access.Identity) (uint64, error) {
	account, err := bank.AccountOf(identity)
	if err != nil {
		return 0, xerrors.Errorf("invalid identity: %v", err)
	}

	data, err := prefixed.NewReadable(noncePrefix, l.store).Get(account)
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return decodeUint64(data), nil
}

// BalanceOf implements ledger.Client. It returns the balance of the identity.
func (l *Ledger) BalanceOf(ctx context.Context, identity access.Identity) (*uint256.Int, error) {
	if ctx.Err() != nil {
		return nil, xerrors.Errorf("context: %v", ctx.Err())
	}

	account, err := bank.AccountOf(identity)
	if err != nil {
		return nil, xerrors.Errorf("invalid identity: %v", err)
	}

	balance, err := bank.Balance(l.store, account)
	if err != nil {
		return nil, xerrors.Errorf("bank: %v", err)
	}

	return balance, nil
}

// Deploy implements ledger.Client. It registers an instance of the artifact
// and runs its constructor.
func (l *Ledger) Deploy(ctx context.Context, artifact compiler.Artifact,
	opts ledger.SendOptions) (ledger.Handle, ledger.Receipt, error) {

	if ctx.Err() != nil {
		return ledger.Handle{}, ledger.Receipt{}, xerrors.Errorf("context: %v", ctx.Err())
	}

	prog, err := artifact.Program()
	if err != nil {
		return ledger.Handle{}, ledger.Receipt{}, xerrors.Errorf("invalid artifact: %v", err)
	}

	if !l.exec.Has(prog.Native) {
		return ledger.Handle{}, ledger.Receipt{},
			xerrors.Errorf("unknown native contract '%s'", prog.Native)
	}

	if opts.From == nil {
		return ledger.Handle{}, ledger.Receipt{}, xerrors.New("missing signer")
	}

	l.Lock()
	defer l.Unlock()

	nonce, err := l.GetNonce(opts.From.GetPublicKey())
	if err != nil {
		return ledger.Handle{}, ledger.Receipt{}, err
	}

	addr, err := deriveAddress(opts.From.GetPublicKey(), nonce)
	if err != nil {
		return ledger.Handle{}, ledger.Receipt{}, err
	}

	handle := ledger.Handle{Address: addr}

	args := []txn.Arg{
		{Key: native.ContractArg, Value: []byte(prog.Native)},
		{Key: native.InstanceArg, Value: addr},
	}

	if prog.Constructor != "" {
		args = append(args, txn.Arg{Key: prog.Argument, Value: []byte(prog.Constructor)})
	}

	run := func(snap store.Snapshot, step execution.Step) (execution.Result, error) {
		err := l.register(snap, addr, prog)
		if err != nil {
			return execution.Result{}, err
		}

		if prog.Constructor == "" {
			return execution.Result{Accepted: true}, nil
		}

		return l.exec.Execute(snap, step)
	}

	receipt, err := l.send(opts, run, args...)
	if err != nil {
		return handle, receipt, err
	}

	l.logger.Info().
		Str("instance", handle.String()).
		Str("contract", artifact.Contract).
		Msg("contract deployed")

	return handle, receipt, nil
}

// Send implements ledger.Client. It sends a transaction for the method of the
// instance.
func (l *Ledger) Send(ctx context.Context, h ledger.Handle, method string,
	opts ledger.SendOptions, args ...txn.Arg) (ledger.Receipt, error) {

	if ctx.Err() != nil {
		return ledger.Receipt{}, xerrors.Errorf("context: %v", ctx.Err())
	}

	prog, err := l.program(h)
	if err != nil {
		return ledger.Receipt{}, err
	}

	cmd, found := prog.Commands[method]
	if !found {
		if contains(prog.Queries, method) {
			return ledger.Receipt{}, xerrors.Errorf("method '%s' is read-only", method)
		}

		return ledger.Receipt{}, xerrors.Errorf("unknown method '%s'", method)
	}

	if opts.From == nil {
		return ledger.Receipt{}, xerrors.New("missing signer")
	}

	err = checkArgs(prog, args)
	if err != nil {
		return ledger.Receipt{}, err
	}

	txArgs := []txn.Arg{
		{Key: native.ContractArg, Value: []byte(prog.Native)},
		{Key: native.InstanceArg, Value: h.Address},
		{Key: prog.Argument, Value: []byte(cmd)},
	}

	l.Lock()
	defer l.Unlock()

	return l.send(opts, l.exec.Execute, append(txArgs, args...)...)
}

// Call implements ledger.Client. It runs the read-only method of the instance.
func (l *Ledger) Call(ctx context.Context, h ledger.Handle, method string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, xerrors.Errorf("context: %v", ctx.Err())
	}

	prog, err := l.program(h)
	if err != nil {
		return nil, err
	}

	if !contains(prog.Queries, method) {
		return nil, xerrors.Errorf("method '%s' is not read-only", method)
	}

	out, err := l.exec.Query(l.store, prog.Native, h.Address, method)
	if err != nil {
		return nil, xerrors.Errorf("failed to call: %w", err)
	}

	return out, nil
}

// Submit processes a transaction created by the caller. The transaction must
// target a registered instance with one of its commands. The constructor is
// reserved to Deploy.
func (l *Ledger) Submit(ctx context.Context, tx *signed.Transaction) (ledger.Receipt, error) {
	if ctx.Err() != nil {
		return ledger.Receipt{}, xerrors.Errorf("context: %v", ctx.Err())
	}

	l.Lock()
	defer l.Unlock()

	err := l.checkSubmitted(tx)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("invalid transaction: %v", err)
	}

	return l.process(tx, l.exec.Execute)
}

func (l *Ledger) checkSubmitted(tx txn.Transaction) error {
	addr := tx.GetArg(native.InstanceArg)
	if len(addr) == 0 {
		return xerrors.New("missing instance")
	}

	prog, err := l.program(ledger.Handle{Address: addr})
	if err != nil {
		return err
	}

	if string(tx.GetArg(native.ContractArg)) != prog.Native {
		return xerrors.Errorf("instance %x does not run '%s'",
			addr, tx.GetArg(native.ContractArg))
	}

	cmd := string(tx.GetArg(prog.Argument))

	if prog.Constructor != "" && cmd == prog.Constructor {
		return xerrors.Errorf("constructor '%s' is reserved to the deployment", cmd)
	}

	for _, c := range prog.Commands {
		if c == cmd {
			return nil
		}
	}

	return xerrors.Errorf("unknown command '%s'", cmd)
}

// checkArgs returns an error if an argument would override the ones set by the
// ledger.
func checkArgs(prog compiler.Program, args []txn.Arg) error {
	for _, arg := range args {
		switch arg.Key {
		case native.ContractArg, native.InstanceArg, native.ValueArg, prog.Argument:
			return xerrors.Errorf("argument '%s' is reserved", arg.Key)
		}
	}

	return nil
}

type runFn func(store.Snapshot, execution.Step) (execution.Result, error)

// send creates the transaction with the arguments and processes it. The lock
// must be held.
func (l *Ledger) send(opts ledger.SendOptions, run runFn, args ...txn.Arg) (ledger.Receipt, error) {
	if opts.Value != nil && !opts.Value.IsZero() {
		value := opts.Value.Bytes()
		args = append(args, txn.Arg{Key: native.ValueArg, Value: value})
	}

	mgr := signed.NewManager(opts.From, l)

	err := mgr.Sync()
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := mgr.Make(args...)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to make tx: %v", err)
	}

	return l.process(tx.(*signed.Transaction), run)
}

// process verifies and applies the transaction. The lock must be held.
func (l *Ledger) process(tx *signed.Transaction, run runFn) (ledger.Receipt, error) {
	logger := l.logger.With().Str("xid", xid.New().String()).Logger()

	err := tx.Verify()
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("invalid transaction: %v", err)
	}

	nonce, err := l.GetNonce(tx.GetIdentity())
	if err != nil {
		return ledger.Receipt{}, err
	}

	if tx.GetNonce() != nonce {
		return ledger.Receipt{}, xerrors.Errorf("nonce %d does not match expected %d",
			tx.GetNonce(), nonce)
	}

	index, err := l.GetBlockIndex()
	if err != nil {
		return ledger.Receipt{}, err
	}

	step := execution.Step{
		Previous:   []txn.Transaction{},
		Current:    tx,
		BlockIndex: index + 1,
		Timestamp:  l.clock(),
	}

	var res execution.Result

	err = l.store.Stage(func(snap store.Snapshot) error {
		res, err = l.execute(snap, step, run)
		if err != nil {
			return err
		}

		if !res.Accepted {
			return errRejected
		}

		return nil
	})

	if err != nil && !xerrors.Is(err, errRejected) {
		return ledger.Receipt{}, xerrors.Errorf("failed to execute: %v", err)
	}

	err = l.store.Stage(func(snap store.Snapshot) error {
		return l.commit(snap, tx, step.BlockIndex)
	})
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to commit block: %v", err)
	}

	promBlocks.Set(float64(step.BlockIndex))

	receipt := ledger.Receipt{
		TxID:       tx.GetID(),
		BlockIndex: step.BlockIndex,
		Accepted:   res.Accepted,
		Message:    res.Message,
	}

	l.watcher.Notify(receipt)

	if !res.Accepted {
		promTxs.WithLabelValues("rejected").Inc()

		logger.Info().
			Uint64("block", step.BlockIndex).
			Hex("tx", tx.GetID()).
			Str("reason", res.Message).
			Msg("transaction rejected")

		reason := res.Err
		if reason == nil {
			reason = xerrors.New(res.Message)
		}

		return receipt, xerrors.Errorf("transaction rejected: %w", reason)
	}

	promTxs.WithLabelValues("accepted").Inc()

	logger.Debug().
		Uint64("block", step.BlockIndex).
		Hex("tx", tx.GetID()).
		Msg("transaction accepted")

	return receipt, nil
}

// execute moves the value attached to the transaction to the instance, and then
// runs the contract.
func (l *Ledger) execute(snap store.Snapshot, step execution.Step, run runFn) (execution.Result, error) {
	value := new(uint256.Int).SetBytes(step.Current.GetArg(native.ValueArg))

	if !value.IsZero() {
		from, err := bank.AccountOf(step.Current.GetIdentity())
		if err != nil {
			return execution.Result{}, xerrors.Errorf("invalid identity: %v", err)
		}

		to := bank.InstanceAccount(step.Current.GetArg(native.InstanceArg))

		err = bank.Transfer(snap, from, to, value)
		if xerrors.Is(err, bank.ErrInsufficientFunds) {
			return execution.Result{Message: err.Error(), Err: err}, nil
		}

		if err != nil {
			return execution.Result{}, xerrors.Errorf("failed to transfer value: %v", err)
		}
	}

	return run(snap, step)
}

// commit bumps the nonce of the sender and moves to the next block.
func (l *Ledger) commit(snap store.Snapshot, tx txn.Transaction, index uint64) error {
	account, err := bank.AccountOf(tx.GetIdentity())
	if err != nil {
		return xerrors.Errorf("invalid identity: %v", err)
	}

	err = prefixed.NewSnapshot(noncePrefix, snap).Set(account, encodeUint64(tx.GetNonce()+1))
	if err != nil {
		return xerrors.Errorf("failed to write nonce: %v", err)
	}

	err = prefixed.NewSnapshot(ledgerPrefix, snap).Set([]byte(keyBlock), encodeUint64(index))
	if err != nil {
		return xerrors.Errorf("failed to write block: %v", err)
	}

	return nil
}

func (l *Ledger) init(genesis Genesis) error {
	digest, err := genesis.Fingerprint()
	if err != nil {
		return err
	}

	balance, err := genesis.GetBalance()
	if err != nil {
		return err
	}

	return l.store.Stage(func(snap store.Snapshot) error {
		ledgerSnap := prefixed.NewSnapshot(ledgerPrefix, snap)

		current, err := ledgerSnap.Get([]byte(keyGenesis))
		if err != nil {
			return xerrors.Errorf("failed to read genesis: %v", err)
		}

		if current != nil {
			if string(current) != string(digest) {
				return xerrors.New("store belongs to another genesis")
			}

			return nil
		}

		for _, signer := range l.signers {
			account, err := bank.AccountOf(signer.GetPublicKey())
			if err != nil {
				return xerrors.Errorf("invalid account: %v", err)
			}

			err = bank.Credit(snap, account, balance)
			if err != nil {
				return xerrors.Errorf("failed to fund account: %v", err)
			}
		}

		err = ledgerSnap.Set([]byte(keyGenesis), digest)
		if err != nil {
			return xerrors.Errorf("failed to write genesis: %v", err)
		}

		l.logger.Info().
			Int("accounts", len(l.signers)).
			Str("balance", bank.FormatValue(balance)).
			Msg("genesis applied")

		return nil
	})
}

func (l *Ledger) register(snap store.Snapshot, addr []byte, prog compiler.Program) error {
	registry := prefixed.NewSnapshot(instancePrefix, snap)

	current, err := registry.Get(addr)
	if err != nil {
		return xerrors.Errorf("failed to read registry: %v", err)
	}

	if current != nil {
		return xerrors.Errorf("instance %x already exists", addr)
	}

	data, err := json.Marshal(prog)
	if err != nil {
		return xerrors.Errorf("failed to encode program: %v", err)
	}

	err = registry.Set(addr, data)
	if err != nil {
		return xerrors.Errorf("failed to write registry: %v", err)
	}

	return nil
}

func (l *Ledger) program(h ledger.Handle) (compiler.Program, error) {
	data, err := prefixed.NewReadable(instancePrefix, l.store).Get(h.Address)
	if err != nil {
		return compiler.Program{}, xerrors.Errorf("failed to read registry: %v", err)
	}

	if data == nil {
		return compiler.Program{}, xerrors.Errorf("unknown instance %v", h)
	}

	var prog compiler.Program

	err = json.Unmarshal(data, &prog)
	if err != nil {
		return compiler.Program{}, xerrors.Errorf("failed to decode program: %v", err)
	}

	return prog, nil
}

// deriveAddress returns the address of the instance deployed by the identity
// with the given nonce.
func deriveAddress(identity access.Identity, nonce uint64) ([]byte, error) {
	account, err := bank.AccountOf(identity)
	if err != nil {
		return nil, xerrors.Errorf("invalid identity: %v", err)
	}

	h := sha256.New()
	h.Write(account)
	h.Write(encodeUint64(nonce))

	return h.Sum(nil)[:ledger.AddressLen], nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}

	return false
}

func encodeUint64(value uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)

	return buffer
}

func decodeUint64(data []byte) uint64 {
	if len(data) != 8 {
		return 0
	}

	return binary.BigEndian.Uint64(data)
}
