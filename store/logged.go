package store

import (
	"fmt"
	"log"

	"github.com/HoangNam-dev/FlowState-Engine/codec"
	"github.com/HoangNam-dev/FlowState-Engine/engine"
)

// ChangeLogger appends one change record to a durable change log. A nil
// value records a tombstone.
type ChangeLogger interface {
	Append(key, value []byte) error
}

// LoggedStore wraps a KeyValueStore so every write is appended to the
// store's changelog after it is applied. Reads and the store's observable
// contract pass through unchanged; eviction is not logged, only explicit
// writes and deletes are.
type LoggedStore[K comparable, V any] struct {
	inner      KeyValueStore[K, V]
	keySerde   codec.Serde[K]
	valueSerde codec.Serde[V]
	logger     ChangeLogger
}

var _ KeyValueStore[string, string] = (*LoggedStore[string, string])(nil)

// EnableLogging wraps inner with changelog writing using the given serdes.
// The changelog writer is wired at Init time from the processing context.
func EnableLogging[K comparable, V any](inner KeyValueStore[K, V], keySerde codec.Serde[K], valueSerde codec.Serde[V]) *LoggedStore[K, V] {
	return &LoggedStore[K, V]{
		inner:      inner,
		keySerde:   keySerde,
		valueSerde: valueSerde,
	}
}

// Name returns the wrapped store's name.
func (l *LoggedStore[K, V]) Name() string {
	return l.inner.Name()
}

// Init initializes the wrapped store, then binds the changelog writer for
// its topic.
func (l *LoggedStore[K, V]) Init(ctx *engine.Context) error {
	if err := l.inner.Init(ctx); err != nil {
		return err
	}
	if l.keySerde == nil || l.valueSerde == nil {
		return fmt.Errorf("logged store %q: key and value serdes are required", l.Name())
	}
	l.logger = ctx.Appender(engine.ChangelogTopic(ctx.ApplicationID(), l.inner.Name()))
	return nil
}

func (l *LoggedStore[K, V]) Flush() error     { return l.inner.Flush() }
func (l *LoggedStore[K, V]) Close() error     { return l.inner.Close() }
func (l *LoggedStore[K, V]) Persistent() bool { return l.inner.Persistent() }
func (l *LoggedStore[K, V]) IsOpen() bool     { return l.inner.IsOpen() }

// Get passes through to the wrapped store; reads are not logged.
func (l *LoggedStore[K, V]) Get(key K) (*V, bool) {
	return l.inner.Get(key)
}

// Put applies the write, then appends it to the changelog.
func (l *LoggedStore[K, V]) Put(key K, value *V) {
	l.inner.Put(key, value)
	l.logChange(key, value)
}

// PutIfAbsent logs only when the write was actually applied.
func (l *LoggedStore[K, V]) PutIfAbsent(key K, value *V) (*V, bool) {
	prev, present := l.inner.PutIfAbsent(key, value)
	if !present {
		l.logChange(key, value)
	}
	return prev, present
}

// PutAll applies and logs each entry in order. Like the wrapped store's
// PutAll, the batch is not atomic.
func (l *LoggedStore[K, V]) PutAll(entries []KeyValue[K, V]) {
	for _, e := range entries {
		l.Put(e.Key, e.Value)
	}
}

// Delete removes the entry and appends a tombstone to the changelog. The
// tombstone is logged even when the key was absent, so the changelog
// records the deletion intent.
func (l *LoggedStore[K, V]) Delete(key K) (*V, bool) {
	value, present := l.inner.Delete(key)
	l.logChange(key, nil)
	return value, present
}

func (l *LoggedStore[K, V]) Range(from, to K) (Iterator[K, V], error) {
	return l.inner.Range(from, to)
}

func (l *LoggedStore[K, V]) All() (Iterator[K, V], error) {
	return l.inner.All()
}

func (l *LoggedStore[K, V]) ApproximateNumEntries() int64 {
	return l.inner.ApproximateNumEntries()
}

// logChange appends one encoded change. Codec and changelog failures are
// the collaborators' concern; the store write has already succeeded, so
// they are logged and not surfaced.
func (l *LoggedStore[K, V]) logChange(key K, value *V) {
	if l.logger == nil {
		return
	}

	rawKey, err := l.keySerde.Serialize(key)
	if err != nil {
		log.Printf("logged store %q: failed to encode key: %v", l.Name(), err)
		return
	}
	var rawValue []byte
	if value != nil {
		rawValue, err = l.valueSerde.Serialize(*value)
		if err != nil {
			log.Printf("logged store %q: failed to encode value: %v", l.Name(), err)
			return
		}
		if rawValue == nil {
			// an encoder may legally produce empty output; keep the
			// record distinguishable from a tombstone
			rawValue = []byte{}
		}
	}
	if err := l.logger.Append(rawKey, rawValue); err != nil {
		log.Printf("logged store %q: failed to append changelog record: %v", l.Name(), err)
	}
}
