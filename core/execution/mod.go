// Package execution defines the primitives to execute a transaction against a
// snapshot of the ledger.
package execution

import (
	"time"

	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
)

// Step is a context of execution. It contains the transaction being executed
// and the information of the block that will include it.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction

	// BlockIndex is the index of the block the transaction is part of.
	BlockIndex uint64

	// Timestamp is the time of the block.
	Timestamp time.Time
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string

	// Err is the error returned by the contract when the transaction is
	// rejected.
	Err error
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
