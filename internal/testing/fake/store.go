package fake

import "go.dedis.ch/lottery/core/store"

// InMemorySnapshot is a fake implementation of a store snapshot.
//
// - implements store.Snapshot
type InMemorySnapshot struct {
	store.Snapshot

	values    map[string][]byte
	ErrRead   error
	ErrWrite  error
	ErrDelete error
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values: make(map[string][]byte),
	}
}

// NewBadSnapshot creates a new empty snapshot that will always return an error.
func NewBadSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values:    make(map[string][]byte),
		ErrRead:   fakeErr,
		ErrWrite:  fakeErr,
		ErrDelete: fakeErr,
	}
}

// Get implements store.Snapshot.
func (snap *InMemorySnapshot) Get(key []byte) ([]byte, error) {
	return snap.values[string(key)], snap.ErrRead
}

// Set implements store.Snapshot.
func (snap *InMemorySnapshot) Set(key, value []byte) error {
	snap.values[string(key)] = value

	return snap.ErrWrite
}

// Delete implements store.Snapshot.
func (snap *InMemorySnapshot) Delete(key []byte) error {
	delete(snap.values, string(key))

	return snap.ErrDelete
}

// Stager is a fake implementation of store.Stager. Stages run on the snapshot
// and the error, if set, is returned instead of the callback result.
//
// - implements store.Stager
type Stager struct {
	*InMemorySnapshot

	err error
}

// NewStager returns a fake stager backed by an in-memory snapshot.
func NewStager() Stager {
	return Stager{InMemorySnapshot: NewSnapshot()}
}

// NewBadStager returns a fake stager that always fails.
func NewBadStager() Stager {
	return Stager{InMemorySnapshot: NewSnapshot(), err: fakeErr}
}

// Stage implements store.Stager.
func (s Stager) Stage(fn func(store.Snapshot) error) error {
	if s.err != nil {
		return s.err
	}

	return fn(s.InMemorySnapshot)
}
