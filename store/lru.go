package store

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/HoangNam-dev/FlowState-Engine/codec"
	"github.com/HoangNam-dev/FlowState-Engine/engine"
)

// EvictionListener is invoked synchronously when a capacity-driven eviction
// removes an entry. It runs on the caller's stack while the store's lock is
// held: it must not call back into the same store and must not block.
type EvictionListener[K comparable, V any] func(key K, value *V)

// LRUOption configures a MemoryLRUStore at construction time.
type LRUOption[K comparable, V any] func(*MemoryLRUStore[K, V])

// WithEvictionListener sets the listener notified on each eviction. At most
// one listener is active; a later option replaces an earlier one.
func WithEvictionListener[K comparable, V any](l EvictionListener[K, V]) LRUOption[K, V] {
	return func(s *MemoryLRUStore[K, V]) {
		s.listener = l
	}
}

// WithKeySerde sets the key serde. If unset, the ambient default from the
// processing context is used at Init time.
func WithKeySerde[K comparable, V any](serde codec.Serde[K]) LRUOption[K, V] {
	return func(s *MemoryLRUStore[K, V]) {
		s.keySerde = serde
	}
}

// WithValueSerde sets the value serde. If unset, the ambient default from
// the processing context is used at Init time.
func WithValueSerde[K comparable, V any](serde codec.Serde[V]) LRUOption[K, V] {
	return func(s *MemoryLRUStore[K, V]) {
		s.valueSerde = serde
	}
}

// handle value marking "no node".
const noNode = -1

// lruNode is one arena slot of the recency list. Links are arena indices,
// not pointers, so the list never forms GC-visible cycles and link
// ownership stays explicit.
type lruNode[K comparable, V any] struct {
	key        K
	value      *V
	prev, next int
}

// MemoryLRUStore is a bounded in-memory KeyValueStore with LRU eviction.
//
// The store holds at most capacity entries. Both Get and Put promote the
// touched key to most-recently-used; when an insert pushes the store over
// capacity, the single least-recently-used entry is evicted and the
// eviction listener, if configured, is invoked before Put returns.
//
// Get, Put, PutIfAbsent and Delete are serialized by one mutex and are
// linearizable with respect to each other. PutAll locks per constituent
// Put, and ApproximateNumEntries reads the size without the lock; both are
// deliberately weakly consistent to avoid contention.
//
// Close only flips the open flag. The storage stays fully operable
// afterwards so that in-flight task shutdown can still drain state.
type MemoryLRUStore[K comparable, V any] struct {
	name     string
	capacity int
	listener EvictionListener[K, V]

	keySerde   codec.Serde[K]
	valueSerde codec.Serde[V]

	mu    sync.Mutex
	index map[K]int
	arena []lruNode[K, V]
	free  []int
	head  int // most recently used
	tail  int // least recently used

	size atomic.Int64
	open atomic.Bool

	changelogTopic string
}

var _ KeyValueStore[string, string] = (*MemoryLRUStore[string, string])(nil)

// NewMemoryLRUStore creates a bounded LRU store with the given name and
// capacity. Capacity is the maximum number of entries and must be positive.
// Listener and serdes are fixed at construction: by the time the store is
// shared across threads its configuration is complete.
func NewMemoryLRUStore[K comparable, V any](name string, capacity int, opts ...LRUOption[K, V]) (*MemoryLRUStore[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("store %q: %w", name, ErrInvalidCapacity)
	}

	s := &MemoryLRUStore[K, V]{
		name:     name,
		capacity: capacity,
		index:    make(map[K]int, capacity+1),
		// leave room for one extra node: an insert lands before the
		// oldest entry is removed
		arena: make([]lruNode[K, V], 0, capacity+1),
		head:  noNode,
		tail:  noNode,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.open.Store(true)

	return s, nil
}

// Name returns the store's identifier.
func (s *MemoryLRUStore[K, V]) Name() string {
	return s.name
}

// Init resolves codecs against the processing context and registers the
// store's changelog restore callback. Replayed records go through the
// ordinary Put path, so restore follows live-write semantics exactly,
// including evictions and listener invocations.
func (s *MemoryLRUStore[K, V]) Init(ctx *engine.Context) error {
	if s.keySerde == nil {
		serde, ok := ctx.DefaultKeySerde().(codec.Serde[K])
		if !ok {
			return fmt.Errorf("store %q: ambient key serde does not match store key type", s.name)
		}
		s.keySerde = serde
	}
	if s.valueSerde == nil {
		serde, ok := ctx.DefaultValueSerde().(codec.Serde[V])
		if !ok {
			return fmt.Errorf("store %q: ambient value serde does not match store value type", s.name)
		}
		s.valueSerde = serde
	}

	s.changelogTopic = engine.ChangelogTopic(ctx.ApplicationID(), s.name)

	// The changelog is compacted: only the latest record per key matters.
	ctx.Register(s.changelogTopic, true, func(rawKey, rawValue []byte) {
		key, err := s.keySerde.Deserialize(rawKey)
		if err != nil {
			log.Printf("store %q: skipping restore record, bad key: %v", s.name, err)
			return
		}
		// nil raw value marks a tombstone; it never reaches the serde.
		if rawValue == nil {
			s.Put(key, nil)
			return
		}
		value, err := s.valueSerde.Deserialize(rawValue)
		if err != nil {
			log.Printf("store %q: skipping restore record, bad value: %v", s.name, err)
			return
		}
		s.Put(key, &value)
	})

	return nil
}

// ChangelogTopic returns the changelog topic the store registered with,
// empty before Init.
func (s *MemoryLRUStore[K, V]) ChangelogTopic() string {
	return s.changelogTopic
}

// KeySerde returns the resolved key serde, nil before Init unless set at
// construction.
func (s *MemoryLRUStore[K, V]) KeySerde() codec.Serde[K] {
	return s.keySerde
}

// ValueSerde returns the resolved value serde, nil before Init unless set
// at construction.
func (s *MemoryLRUStore[K, V]) ValueSerde() codec.Serde[V] {
	return s.valueSerde
}

// Persistent always reports false: the store is purely in-memory.
func (s *MemoryLRUStore[K, V]) Persistent() bool {
	return false
}

// IsOpen reports whether Close has not yet been called.
func (s *MemoryLRUStore[K, V]) IsOpen() bool {
	return s.open.Load()
}

// Flush is a no-op: there is nothing to durably commit.
func (s *MemoryLRUStore[K, V]) Flush() error {
	return nil
}

// Close flips the open flag. Storage is not purged and operations keep
// working, so shutdown code can still read remaining state.
func (s *MemoryLRUStore[K, V]) Close() error {
	s.open.Store(false)
	return nil
}

// Get returns the value for key, promoting it to most-recently-used. A
// present tombstone returns (nil, true), distinct from an absent key's
// (nil, false).
func (s *MemoryLRUStore[K, V]) Get(key K) (*V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.index[key]
	if !ok {
		return nil, false
	}
	s.moveToFront(h)
	return s.arena[h].value, true
}

// Put inserts or overwrites the value for key and promotes it. An
// overwrite never changes size and never evicts. A new insert that pushes
// the store over capacity evicts exactly the least-recently-used entry and
// invokes the eviction listener, if any, before returning.
func (s *MemoryLRUStore[K, V]) Put(key K, value *V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, value)
}

// PutIfAbsent returns the existing value and true when key is present,
// leaving the entry's value untouched; the presence check goes through the
// promoting lookup, so recency is updated either way. A stored tombstone
// counts as present. When key is absent the value is inserted and
// (nil, false) returned.
func (s *MemoryLRUStore[K, V]) PutIfAbsent(key K, value *V) (*V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.index[key]; ok {
		s.moveToFront(h)
		return s.arena[h].value, true
	}
	s.putLocked(key, value)
	return nil, false
}

// PutAll applies Put for each entry in order. Each Put locks individually;
// the batch as a whole is not atomic and concurrent readers may observe a
// partially applied sequence.
func (s *MemoryLRUStore[K, V]) PutAll(entries []KeyValue[K, V]) {
	for _, e := range entries {
		s.Put(e.Key, e.Value)
	}
}

// Delete removes the entry for key and returns its value. Explicit
// deletion is not an eviction: the eviction listener is never invoked.
func (s *MemoryLRUStore[K, V]) Delete(key K) (*V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.index[key]
	if !ok {
		return nil, false
	}
	value := s.arena[h].value
	s.unlink(h)
	delete(s.index, key)
	s.release(h)
	s.size.Store(int64(len(s.index)))
	return value, true
}

// Range is unsupported: entries are ordered by recency, not by key.
func (s *MemoryLRUStore[K, V]) Range(from, to K) (Iterator[K, V], error) {
	return nil, fmt.Errorf("store %q: range: %w", s.name, ErrUnsupportedOperation)
}

// All is unsupported: entries are ordered by recency, not by key.
func (s *MemoryLRUStore[K, V]) All() (Iterator[K, V], error) {
	return nil, fmt.Errorf("store %q: all: %w", s.name, ErrUnsupportedOperation)
}

// ApproximateNumEntries returns the entry count from an atomic counter
// maintained by mutators, without taking their lock. Under concurrent
// mutation the value is a best-effort approximation.
func (s *MemoryLRUStore[K, V]) ApproximateNumEntries() int64 {
	return s.size.Load()
}

// putLocked implements Put with s.mu held.
func (s *MemoryLRUStore[K, V]) putLocked(key K, value *V) {
	if h, ok := s.index[key]; ok {
		s.arena[h].value = value
		s.moveToFront(h)
		return
	}

	h := s.acquire(key, value)
	s.index[key] = h
	s.pushFront(h)
	s.size.Store(int64(len(s.index)))

	// size may sit at capacity+1 here; one eviction resolves it.
	if len(s.index) > s.capacity {
		s.evictOldest()
	}
}

// evictOldest removes the tail entry and notifies the listener. Called
// with s.mu held, at most once per insert.
func (s *MemoryLRUStore[K, V]) evictOldest() {
	h := s.tail
	key, value := s.arena[h].key, s.arena[h].value
	s.unlink(h)
	delete(s.index, key)
	s.release(h)
	s.size.Store(int64(len(s.index)))

	if s.listener != nil {
		s.listener(key, value)
	}
}

// acquire takes a free arena slot, or grows the arena, and fills it.
func (s *MemoryLRUStore[K, V]) acquire(key K, value *V) int {
	if n := len(s.free); n > 0 {
		h := s.free[n-1]
		s.free = s.free[:n-1]
		s.arena[h] = lruNode[K, V]{key: key, value: value, prev: noNode, next: noNode}
		return h
	}
	s.arena = append(s.arena, lruNode[K, V]{key: key, value: value, prev: noNode, next: noNode})
	return len(s.arena) - 1
}

// release clears a slot and returns it to the free list.
func (s *MemoryLRUStore[K, V]) release(h int) {
	s.arena[h] = lruNode[K, V]{prev: noNode, next: noNode}
	s.free = append(s.free, h)
}

// pushFront links an unlinked node as most-recently-used.
func (s *MemoryLRUStore[K, V]) pushFront(h int) {
	s.arena[h].prev = noNode
	s.arena[h].next = s.head
	if s.head != noNode {
		s.arena[s.head].prev = h
	}
	s.head = h
	if s.tail == noNode {
		s.tail = h
	}
}

// unlink detaches a node from the recency list.
func (s *MemoryLRUStore[K, V]) unlink(h int) {
	prev, next := s.arena[h].prev, s.arena[h].next
	if prev != noNode {
		s.arena[prev].next = next
	} else {
		s.head = next
	}
	if next != noNode {
		s.arena[next].prev = prev
	} else {
		s.tail = prev
	}
	s.arena[h].prev = noNode
	s.arena[h].next = noNode
}

// moveToFront promotes a linked node to most-recently-used.
func (s *MemoryLRUStore[K, V]) moveToFront(h int) {
	if s.head == h {
		return
	}
	s.unlink(h)
	s.pushFront(h)
}
