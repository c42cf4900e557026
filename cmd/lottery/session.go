package main

import (
	"context"
	"os"
	"path/filepath"

	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/compiler"
	"go.dedis.ch/lottery/contracts/lottery"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/execution/native"
	"go.dedis.ch/lottery/core/ledger/simulated"
	"go.dedis.ch/lottery/core/store/kv"
	"go.dedis.ch/lottery/crypto"
	"golang.org/x/xerrors"
)

const (
	databaseName = "ledger.db"
	bucketName   = "ledger"
)

// session is the ledger opened for the duration of one command.
type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	db      kv.DB
	ledger  *simulated.Ledger
	metrics string
}

func openSession(flags cli.Flags) (*session, error) {
	dir := flags.Path("config")

	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return nil, xerrors.Errorf("failed to create config folder: %v", err)
	}

	genesis := simulated.DefaultGenesis()

	if flags.Path("genesis") != "" {
		genesis, err = simulated.LoadGenesis(flags.Path("genesis"))
		if err != nil {
			return nil, err
		}
	}

	source, err := makeSource(flags)
	if err != nil {
		return nil, err
	}

	minimum, err := bank.ParseValue(flags.String("minimum"))
	if err != nil {
		return nil, xerrors.Errorf("invalid minimum: %v", err)
	}

	exec := native.NewExecution()
	lottery.RegisterContract(exec, lottery.NewContract(
		lottery.WithSource(source),
		lottery.WithMinimum(minimum),
	))

	db, err := kv.New(filepath.Join(dir, databaseName))
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %v", err)
	}

	l, err := simulated.NewLedger(exec, genesis, simulated.WithStore(kv.NewStore(db, []byte(bucketName))))
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("failed to create ledger: %v", err)
	}

	var ctx context.Context
	var cancel context.CancelFunc

	if flags.Duration("timeout") > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), flags.Duration("timeout"))
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	return &session{
		ctx:     ctx,
		cancel:  cancel,
		db:      db,
		ledger:  l,
		metrics: flags.Path("metrics"),
	}, nil
}

// Close releases the database and writes the metrics if requested.
func (s *session) Close() error {
	s.cancel()

	if s.metrics != "" {
		err := writeMetrics(s.metrics)
		if err != nil {
			s.db.Close()
			return err
		}
	}

	err := s.db.Close()
	if err != nil {
		return xerrors.Errorf("failed to close database: %v", err)
	}

	return nil
}

// closeSession closes the session and reports its error, unless the command
// already failed.
func closeSession(s *session, err *error) {
	cerr := s.Close()
	if *err == nil {
		*err = cerr
	}
}

func (s *session) account(flags cli.Flags) (crypto.Signer, error) {
	index := flags.Int("account")
	accounts := s.ledger.Accounts()

	if index < 0 || index >= len(accounts) {
		return nil, xerrors.Errorf("account %d out of range [0, %d)", index, len(accounts))
	}

	return accounts[index], nil
}

func makeSource(flags cli.Flags) (lottery.Source, error) {
	switch flags.String("randomness") {
	case "ledger":
		return lottery.NewLedgerSource(), nil
	case "seeded":
		return lottery.NewSeededSource(flags.Int64("seed")), nil
	case "crypto":
		return lottery.NewCryptoSource(), nil
	default:
		return nil, xerrors.Errorf("unknown randomness '%s'", flags.String("randomness"))
	}
}

func loadArtifact(path string) (compiler.Artifact, error) {
	if path == "" {
		return compiler.CompileSource(lottery.Manifest)
	}

	return compiler.Compile(path)
}
