// Package ledger defines the client of a ledger that hosts contract instances.
//
// A client deploys the artifacts produced by the compiler, sends the
// transactions that change the state of an instance and queries its read-only
// methods. The transactions are executed one after the other and each of them
// either applies completely or not at all.
//
// Documentation Last Review: 14.10.2026
package ledger

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/holiman/uint256"
	"go.dedis.ch/lottery/compiler"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/bank"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/crypto"
	"golang.org/x/xerrors"
)

// AddressLen is the length in bytes of an instance address.
const AddressLen = 20

// Handle is the reference to a deployed contract instance. Its text form is the
// address of the instance account.
//
// - implements access.Identity
type Handle struct {
	Address []byte
}

// ParseHandle returns the handle of the hexadecimal address, with or without
// the 0x prefix.
func ParseHandle(text string) (Handle, error) {
	addr, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
	if err != nil {
		return Handle{}, xerrors.Errorf("invalid address '%s': %v", text, err)
	}

	if len(addr) != AddressLen {
		return Handle{}, xerrors.Errorf("address must be %d bytes, got %d", AddressLen, len(addr))
	}

	return Handle{Address: addr}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return bank.InstanceAccount(h.Address), nil
}

// Equal implements access.Identity.
func (h Handle) Equal(other interface{}) bool {
	o, ok := other.(Handle)
	return ok && string(o.Address) == string(h.Address)
}

// String implements fmt.Stringer.
func (h Handle) String() string {
	return string(bank.InstanceAccount(h.Address))
}

// Receipt is the outcome of a transaction.
type Receipt struct {
	TxID       []byte
	BlockIndex uint64
	Accepted   bool
	Message    string
}

// SendOptions are the options of a transaction: who signs it and how much it
// pays to the instance.
type SendOptions struct {
	From  crypto.Signer
	Value *uint256.Int
}

// Client is the client of a ledger.
type Client interface {
	// Deploy creates an instance of the artifact. The signer becomes the owner
	// of the instance if the contract has a constructor.
	Deploy(ctx context.Context, artifact compiler.Artifact, opts SendOptions) (Handle, Receipt, error)

	// Send sends a transaction for the method of the instance. A rejected
	// transaction returns its receipt and an error that wraps the reason.
	Send(ctx context.Context, h Handle, method string, opts SendOptions, args ...txn.Arg) (Receipt, error)

	// Call runs a read-only method of the instance.
	Call(ctx context.Context, h Handle, method string) ([]byte, error)

	// BalanceOf returns the balance of an identity, or of an instance when the
	// identity is a handle.
	BalanceOf(ctx context.Context, identity access.Identity) (*uint256.Int, error)

	// GetNonce returns the nonce expected for the next transaction of the
	// identity.
	GetNonce(identity access.Identity) (uint64, error)
}
