// Package kvstore provides an opaque key-value store for whole JSON records.
// Records are read and written atomically: a reader never observes a
// partially written record.
package kvstore

import "errors"

// ErrNotFound is returned by Get when no record exists for the key. Absence
// is a valid, expected state for every record in the store.
var ErrNotFound = errors.New("kvstore: key not found")

// Store persists whole records by key. Set overwrites any existing record;
// Delete on a missing key is a no-op.
type Store interface {
	Get(key string, value any) error
	Set(key string, value any) error
	Delete(key string) error
}
