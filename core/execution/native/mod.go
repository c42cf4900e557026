// Package native implements an execution service to run native smart contracts.
//
// A native smart contract is written in Go and packaged with the application.
// Each contract declares the instances it owns in the store, and a transaction
// targets one instance with the instance argument.
//
// Documentation Last Review: 14.10.2026
package native

import (
	"go.dedis.ch/lottery/core/execution"
	"go.dedis.ch/lottery/core/store"
	"golang.org/x/xerrors"
)

const (
	// ContractArg is the argument key in the transaction to look up a contract.
	ContractArg = "go.dedis.ch/lottery.ContractArg"

	// InstanceArg is the argument key in the transaction to look up the
	// address of the contract instance.
	InstanceArg = "go.dedis.ch/lottery.InstanceArg"

	// ValueArg is the argument key for the value attached to the transaction,
	// as a big-endian unsigned integer.
	ValueArg = "go.dedis.ch/lottery.ValueArg"
)

// Contract is the interface to implement to register a smart contract that will
// be executed natively.
type Contract interface {
	// Execute applies the transaction of the step to the snapshot. An error
	// rejects the transaction.
	Execute(store.Snapshot, execution.Step) error

	// Query runs a read-only method of the instance identified by the address.
	Query(snap store.Readable, instance []byte, method string) ([]byte, error)

	// UID returns the unique 4-bytes identifier of the contract.
	UID() string
}

// Service is an execution service for packaged applications. Those
// applications have complete access to the store and can directly update it.
//
// - implements execution.Service
type Service struct {
	contracts    map[string]Contract
	contractUIDs map[string]struct{}
}

// NewExecution returns a new native execution. The given service will be
// executed for every incoming transaction.
func NewExecution() *Service {
	return &Service{
		contracts:    map[string]Contract{},
		contractUIDs: map[string]struct{}{},
	}
}

// Set stores the contract using the name as the key. A transaction can trigger
// this contract by using the same name as the contract argument.
func (ns *Service) Set(name string, contract Contract) {
	if _, ok := ns.contracts[name]; ok {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	uid := contract.UID()

	// UIDs are expected to be 4 bytes long, always.
	if len(uid) != 4 {
		panic(xerrors.Errorf("contract UID '%x' for '%s' is not 4 bytes long", uid, name))
	}

	if _, ok := ns.contractUIDs[uid]; ok {
		panic(xerrors.Errorf("contract UID '%x' for '%s' already registered", uid, name))
	}

	ns.contracts[name] = contract
	ns.contractUIDs[uid] = struct{}{}
}

// Has returns true if a contract is registered with the name.
func (ns *Service) Has(name string) bool {
	_, found := ns.contracts[name]
	return found
}

// Execute implements execution.Service. It uses the executor to process the
// incoming transaction and return the result.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract := ns.contracts[name]
	if contract == nil {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	res := execution.Result{
		Accepted: true,
	}

	err := contract.Execute(snap, step)
	if err != nil {
		res.Accepted = false
		res.Message = err.Error()
		res.Err = err
	}

	return res, nil
}

// Query runs the read-only method of the contract on the instance.
func (ns *Service) Query(snap store.Readable, name string, instance []byte, method string) ([]byte, error) {
	contract := ns.contracts[name]
	if contract == nil {
		return nil, xerrors.Errorf("unknown contract '%s'", name)
	}

	out, err := contract.Query(snap, instance, method)
	if err != nil {
		return nil, xerrors.Errorf("query '%s' failed: %w", method, err)
	}

	return out, nil
}
