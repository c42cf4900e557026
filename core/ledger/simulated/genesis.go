package simulated

import (
	"crypto/sha256"
	"encoding/binary"
	"os"

	"github.com/holiman/uint256"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/crypto"
	"go.dedis.ch/lottery/crypto/ed25519"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultSeed is the seed of the default genesis.
	DefaultSeed = "lottery simulated ledger"

	// DefaultAccounts is the number of accounts of the default genesis.
	DefaultAccounts = 10

	// DefaultBalance is the initial balance of every account of the default
	// genesis.
	DefaultBalance = "100ether"

	// MaxAccounts is the maximum number of accounts of a genesis.
	MaxAccounts = 1000
)

// Genesis describes the initial accounts of the ledger. The signers of the
// accounts are derived from the seed so that the same genesis always gives the
// same accounts.
type Genesis struct {
	Seed     string `yaml:"seed"`
	Accounts int    `yaml:"accounts"`
	Balance  string `yaml:"balance"`
}

// DefaultGenesis returns the default genesis.
func DefaultGenesis() Genesis {
	return Genesis{
		Seed:     DefaultSeed,
		Accounts: DefaultAccounts,
		Balance:  DefaultBalance,
	}
}

// LoadGenesis reads a genesis from a YAML file. Missing fields take the
// default values.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, xerrors.Errorf("failed to read genesis: %v", err)
	}

	genesis := Genesis{}

	err = yaml.UnmarshalStrict(data, &genesis)
	if err != nil {
		return Genesis{}, xerrors.Errorf("failed to decode genesis: %v", err)
	}

	def := DefaultGenesis()

	if genesis.Seed == "" {
		genesis.Seed = def.Seed
	}

	if genesis.Accounts == 0 {
		genesis.Accounts = def.Accounts
	}

	if genesis.Balance == "" {
		genesis.Balance = def.Balance
	}

	err = genesis.Validate()
	if err != nil {
		return Genesis{}, xerrors.Errorf("invalid genesis: %v", err)
	}

	return genesis, nil
}

// Validate returns an error if the number of accounts is out of range or if the
// balance cannot be parsed.
func (g Genesis) Validate() error {
	if g.Accounts < 0 || g.Accounts > MaxAccounts {
		return xerrors.Errorf("accounts must be in [0, %d], got %d", MaxAccounts, g.Accounts)
	}

	_, err := g.GetBalance()
	if err != nil {
		return err
	}

	return nil
}

// Signers returns the signers of the accounts. A negative number of accounts
// gives no signer.
func (g Genesis) Signers() []crypto.Signer {
	if g.Accounts <= 0 {
		return nil
	}

	signers := make([]crypto.Signer, g.Accounts)

	for i := range signers {
		h := sha256.New()
		h.Write([]byte(g.Seed))

		index := make([]byte, 4)
		binary.BigEndian.PutUint32(index, uint32(i))
		h.Write(index)

		signers[i] = ed25519.NewSignerFromSeed(h.Sum(nil))
	}

	return signers
}

// GetBalance returns the initial balance of the accounts.
func (g Genesis) GetBalance() (*uint256.Int, error) {
	balance, err := bank.ParseValue(g.Balance)
	if err != nil {
		return nil, xerrors.Errorf("invalid balance: %v", err)
	}

	return balance, nil
}

// Fingerprint returns a digest of the genesis.
func (g Genesis) Fingerprint() ([]byte, error) {
	data, err := yaml.Marshal(g)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode genesis: %v", err)
	}

	digest := sha256.Sum256(data)

	return digest[:], nil
}
