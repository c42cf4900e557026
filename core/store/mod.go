// Package store defines the primitives of a simple key/value storage.
//
// Documentation Last Review: 14.10.2026
package store

// Readable is the interface for a readable store.
type Readable interface {
	// Get returns the value of the key, or nil if it does not exist.
	Get(key []byte) ([]byte, error)
}

// Writable is the interface for a writable store.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Snapshot is a state of the store that can be read and write independently. A
// write is applied only to the snapshot reference.
type Snapshot interface {
	Readable
	Writable
}

// Stager is a store that applies a set of changes atomically. The changes made
// on the snapshot provided to the callback are committed only if it returns
// nil, otherwise the store is left untouched.
type Stager interface {
	Readable

	Stage(fn func(Snapshot) error) error
}
