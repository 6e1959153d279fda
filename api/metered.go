package api

import (
	"github.com/HoangNam-dev/FlowState-Engine/engine"
	"github.com/HoangNam-dev/FlowState-Engine/store"
)

// MeteredStore wraps a KeyValueStore and records per-operation metrics.
// Evictions happen inside the wrapped store's lock, so they are counted by
// attaching StoreMetrics.RecordEviction to the store's eviction listener,
// not by this wrapper.
type MeteredStore[K comparable, V any] struct {
	inner   store.KeyValueStore[K, V]
	metrics *StoreMetrics
}

var _ store.KeyValueStore[string, string] = (*MeteredStore[string, string])(nil)

// NewMeteredStore wraps inner with metric recording.
func NewMeteredStore[K comparable, V any](inner store.KeyValueStore[K, V], metrics *StoreMetrics) *MeteredStore[K, V] {
	return &MeteredStore[K, V]{inner: inner, metrics: metrics}
}

func (m *MeteredStore[K, V]) Name() string { return m.inner.Name() }

func (m *MeteredStore[K, V]) Init(ctx *engine.Context) error {
	return m.inner.Init(ctx)
}

func (m *MeteredStore[K, V]) Flush() error     { return m.inner.Flush() }
func (m *MeteredStore[K, V]) Close() error     { return m.inner.Close() }
func (m *MeteredStore[K, V]) Persistent() bool { return m.inner.Persistent() }
func (m *MeteredStore[K, V]) IsOpen() bool     { return m.inner.IsOpen() }

func (m *MeteredStore[K, V]) Get(key K) (*V, bool) {
	value, ok := m.inner.Get(key)
	m.metrics.RecordGet(ok)
	return value, ok
}

func (m *MeteredStore[K, V]) Put(key K, value *V) {
	m.inner.Put(key, value)
	m.metrics.Puts.Inc()
	m.metrics.UpdateEntries(m.inner.ApproximateNumEntries())
}

func (m *MeteredStore[K, V]) PutIfAbsent(key K, value *V) (*V, bool) {
	prev, present := m.inner.PutIfAbsent(key, value)
	if !present {
		m.metrics.Puts.Inc()
		m.metrics.UpdateEntries(m.inner.ApproximateNumEntries())
	}
	return prev, present
}

func (m *MeteredStore[K, V]) PutAll(entries []store.KeyValue[K, V]) {
	m.inner.PutAll(entries)
	m.metrics.Puts.Add(float64(len(entries)))
	m.metrics.UpdateEntries(m.inner.ApproximateNumEntries())
}

func (m *MeteredStore[K, V]) Delete(key K) (*V, bool) {
	value, present := m.inner.Delete(key)
	m.metrics.Deletes.Inc()
	m.metrics.UpdateEntries(m.inner.ApproximateNumEntries())
	return value, present
}

func (m *MeteredStore[K, V]) Range(from, to K) (store.Iterator[K, V], error) {
	return m.inner.Range(from, to)
}

func (m *MeteredStore[K, V]) All() (store.Iterator[K, V], error) {
	return m.inner.All()
}

func (m *MeteredStore[K, V]) ApproximateNumEntries() int64 {
	return m.inner.ApproximateNumEntries()
}
