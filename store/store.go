package store

import (
	"errors"

	"github.com/HoangNam-dev/FlowState-Engine/engine"
)

// Common errors for store operations
var (
	ErrUnsupportedOperation = errors.New("operation is not supported by this store")
	ErrInvalidCapacity      = errors.New("store capacity must be positive")
)

// KeyValue is a single key-value pair held by a store. A nil Value is a
// tombstone: the key is present but carries an explicit "deleted" marker.
type KeyValue[K comparable, V any] struct {
	Key   K
	Value *V
}

// StateStore is the lifecycle surface shared by all local state stores.
type StateStore interface {
	// Name returns the store's identifier within its processing task.
	Name() string

	// Init wires the store into the processing context: it resolves
	// codecs, registers the store's changelog restore callback, and must
	// complete before the store is shared across task threads.
	Init(ctx *engine.Context) error

	// Flush writes any buffered state to durable storage.
	Flush() error

	// Close releases the store. See each implementation for whether
	// operations after Close are rejected.
	Close() error

	// Persistent reports whether the store survives process restarts.
	Persistent() bool

	// IsOpen reports whether the store is open for use.
	IsOpen() bool
}

// Iterator walks key-value pairs of a store. Callers must Close it.
type Iterator[K comparable, V any] interface {
	Next() (KeyValue[K, V], bool)
	Close() error
}

// KeyValueStore is a key-value state store with typed keys and values.
// A nil *V value is a tombstone (see KeyValue).
type KeyValueStore[K comparable, V any] interface {
	StateStore

	// Get returns the value for key, or false if the key is absent.
	Get(key K) (*V, bool)

	// Put inserts or overwrites the value for key.
	Put(key K, value *V)

	// PutIfAbsent puts the value only if the key is absent. It returns
	// the existing value and true if the key was already present.
	PutIfAbsent(key K, value *V) (*V, bool)

	// PutAll applies Put for each entry in order. The batch is not
	// atomic: concurrent readers may observe partial progress.
	PutAll(entries []KeyValue[K, V])

	// Delete removes the entry for key, returning its value and true if
	// the key was present.
	Delete(key K) (*V, bool)

	// Range iterates entries with keys in [from, to]. Stores ordered by
	// recency rather than key return ErrUnsupportedOperation.
	Range(from, to K) (Iterator[K, V], error)

	// All iterates every entry. Stores ordered by recency rather than
	// key return ErrUnsupportedOperation.
	All() (Iterator[K, V], error)

	// ApproximateNumEntries returns the entry count without taking the
	// store's mutator lock. The result is approximate under concurrent
	// mutation.
	ApproximateNumEntries() int64
}
