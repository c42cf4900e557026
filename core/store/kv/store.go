package kv

import (
	"go.dedis.ch/lottery/core/store"
	"golang.org/x/xerrors"
)

// Store is a store backed by a single bucket of the database. Each stage is
// executed inside one database transaction.
//
// - implements store.Stager
type Store struct {
	db     DB
	bucket []byte
}

// NewStore returns a store that uses the bucket of the database.
func NewStore(db DB, bucket []byte) Store {
	return Store{
		db:     db,
		bucket: bucket,
	}
}

// Get implements store.Readable. It returns the value associated to the key,
// or nil if it does not exist.
func (s Store) Get(key []byte) ([]byte, error) {
	var value []byte

	err := s.db.View(func(tx ReadableTx) error {
		bucket := tx.GetBucket(s.bucket)
		if bucket == nil {
			return nil
		}

		value = copyValue(bucket.Get(key))

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read db: %v", err)
	}

	return value, nil
}

// Stage implements store.Stager. It opens a writable transaction and provides
// a snapshot of the bucket to the callback. The transaction is rolled back when
// the callback fails.
func (s Store) Stage(fn func(store.Snapshot) error) error {
	return s.db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate(s.bucket)
		if err != nil {
			return xerrors.Errorf("failed to get bucket: %v", err)
		}

		return fn(bucketSnapshot{bucket: bucket})
	})
}

// bucketSnapshot is a snapshot that writes directly in the bucket of an
// ongoing transaction.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket Bucket
}

func (snap bucketSnapshot) Get(key []byte) ([]byte, error) {
	return copyValue(snap.bucket.Get(key)), nil
}

func (snap bucketSnapshot) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	return snap.bucket.Set(key, value)
}

func (snap bucketSnapshot) Delete(key []byte) error {
	return snap.bucket.Delete(key)
}

// bbolt values are only valid during the transaction.
func copyValue(value []byte) []byte {
	if value == nil {
		return nil
	}

	return append([]byte{}, value...)
}
