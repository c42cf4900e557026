// Package mem implements an in-memory store.
//
// Changes are staged on a child snapshot that reads through to the parent and
// they are merged into the store only when the stage succeeds.
//
// Documentation Last Review: 14.10.2026
package mem

import (
	"sync"

	"go.dedis.ch/lottery/core/store"
)

// Store is an in-memory key/value store.
//
// - implements store.Stager
type Store struct {
	sync.Mutex

	entries map[string][]byte
}

// NewStore returns a new empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string][]byte),
	}
}

// Get implements store.Readable. It returns the value associated to the key,
// or nil if it does not exist.
func (s *Store) Get(key []byte) ([]byte, error) {
	s.Lock()
	defer s.Unlock()

	return copyValue(s.entries[string(key)]), nil
}

// Stage implements store.Stager. It runs the callback on a child snapshot and
// merges its changes into the store if the callback returns nil.
func (s *Store) Stage(fn func(store.Snapshot) error) error {
	s.Lock()
	defer s.Unlock()

	snap := NewSnapshot(readable{entries: s.entries})

	err := fn(snap)
	if err != nil {
		return err
	}

	for key, value := range snap.updates {
		if value == nil {
			delete(s.entries, key)
		} else {
			s.entries[key] = value
		}
	}

	return nil
}

// Snapshot is a copy-on-write snapshot of a parent store. The writes are
// recorded and never reach the parent.
//
// - implements store.Snapshot
type Snapshot struct {
	parent  store.Readable
	updates map[string][]byte
}

// NewSnapshot creates a new snapshot on top of the parent. A nil parent is
// treated as an empty store.
func NewSnapshot(parent store.Readable) *Snapshot {
	return &Snapshot{
		parent:  parent,
		updates: make(map[string][]byte),
	}
}

// Get implements store.Readable. It returns the value written in the snapshot
// if any, otherwise it reads the parent.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	value, found := s.updates[string(key)]
	if found {
		return copyValue(value), nil
	}

	if s.parent == nil {
		return nil, nil
	}

	return s.parent.Get(key)
}

// Set implements store.Writable. It records the value for the key.
func (s *Snapshot) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	s.updates[string(key)] = copyValue(value)

	return nil
}

// Delete implements store.Writable. It records the deletion of the key.
func (s *Snapshot) Delete(key []byte) error {
	s.updates[string(key)] = nil

	return nil
}

// Len returns the number of keys modified by the snapshot.
func (s *Snapshot) Len() int {
	return len(s.updates)
}

type readable struct {
	entries map[string][]byte
}

func (r readable) Get(key []byte) ([]byte, error) {
	return copyValue(r.entries[string(key)]), nil
}

func copyValue(value []byte) []byte {
	if value == nil {
		return nil
	}

	return append([]byte{}, value...)
}
