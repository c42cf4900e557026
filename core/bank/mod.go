// Package bank implements the accounts of the ledger. An account is a balance
// in wei associated to an address, which is either the text form of an identity
// or the address of a contract instance.
//
// Documentation Last Review: 14.10.2026
package bank

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/store/prefixed"
	"golang.org/x/xerrors"
)

const prefix = "bank"

// ErrInsufficientFunds is returned when an account is debited more than its
// balance.
var ErrInsufficientFunds = xerrors.New("insufficient funds")

// AccountOf returns the account address of the identity.
func AccountOf(identity access.Identity) ([]byte, error) {
	addr, err := identity.MarshalText()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	return addr, nil
}

// InstanceAccount returns the account address of a contract instance.
func InstanceAccount(instance []byte) []byte {
	return []byte(fmt.Sprintf("0x%x", instance))
}

// Balance returns the balance of the account. An unknown account has a zero
// balance.
func Balance(r store.Readable, account []byte) (*uint256.Int, error) {
	value, err := prefixed.NewReadable(prefix, r).Get(account)
	if err != nil {
		return nil, xerrors.Errorf("failed to read balance: %v", err)
	}

	return new(uint256.Int).SetBytes(value), nil
}

// Credit adds the amount to the balance of the account.
func Credit(snap store.Snapshot, account []byte, amount *uint256.Int) error {
	balance, err := Balance(snap, account)
	if err != nil {
		return err
	}

	balance, overflow := balance.AddOverflow(balance, amount)
	if overflow {
		return xerrors.Errorf("balance overflow for %s", account)
	}

	return write(snap, account, balance)
}

// Debit removes the amount from the balance of the account. It returns
// ErrInsufficientFunds if the balance is lower than the amount.
func Debit(snap store.Snapshot, account []byte, amount *uint256.Int) error {
	balance, err := Balance(snap, account)
	if err != nil {
		return err
	}

	if balance.Lt(amount) {
		return xerrors.Errorf("%s has %s but needs %s: %w",
			account, FormatValue(balance), FormatValue(amount), ErrInsufficientFunds)
	}

	return write(snap, account, balance.Sub(balance, amount))
}

// Transfer moves the amount from one account to the other.
func Transfer(snap store.Snapshot, from, to []byte, amount *uint256.Int) error {
	err := Debit(snap, from, amount)
	if err != nil {
		return xerrors.Errorf("failed to debit: %w", err)
	}

	err = Credit(snap, to, amount)
	if err != nil {
		return xerrors.Errorf("failed to credit: %w", err)
	}

	return nil
}

func write(snap store.Snapshot, account []byte, balance *uint256.Int) error {
	buffer := balance.Bytes32()

	err := prefixed.NewSnapshot(prefix, snap).Set(account, buffer[:])
	if err != nil {
		return xerrors.Errorf("failed to write balance: %v", err)
	}

	return nil
}
