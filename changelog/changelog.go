// Package changelog provides the durable-change record log behind logged
// state stores.
// This package implements:
// - Log: in-memory, append-ordered change records grouped by topic
// - Arrow IPC segment encoding for snapshot and transport
// - Publisher/Follower: ZeroMQ PUB/SUB fan-out of change records
package changelog

import (
	"errors"
	"sync"
)

// Common errors for changelog operations
var (
	ErrUnknownTopic = errors.New("changelog topic does not exist")
	ErrEmptyTopic   = errors.New("changelog topic name is empty")
)

// Record is one change: a raw key and the raw value written for it. A nil
// Value is a tombstone recording a deletion.
type Record struct {
	Key   []byte
	Value []byte
}

// tombstone reports whether the record erases its key.
func (r Record) tombstone() bool {
	return r.Value == nil
}

// Log is an in-memory append-ordered change log grouped by topic. It backs
// logged stores in tests and single-process deployments; a broker-backed
// implementation can replace it behind the same surface.
type Log struct {
	mu     sync.RWMutex
	topics map[string][]Record
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{
		topics: make(map[string][]Record),
	}
}

// Append records a change for topic. A nil value appends a tombstone.
// The key and value are copied; callers may reuse their buffers.
func (l *Log) Append(topic string, key, value []byte) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	rec := Record{Key: append([]byte(nil), key...)}
	if value != nil {
		rec.Value = append([]byte(nil), value...)
	}

	l.mu.Lock()
	l.topics[topic] = append(l.topics[topic], rec)
	l.mu.Unlock()
	return nil
}

// Replay streams every record of topic, in append order, through cb. A nil
// value passed to cb marks a tombstone. Replaying a topic that was never
// appended to is not an error: a fresh store simply has no history.
func (l *Log) Replay(topic string, cb func(key, value []byte)) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	l.mu.RLock()
	records := make([]Record, len(l.topics[topic]))
	copy(records, l.topics[topic])
	l.mu.RUnlock()

	for _, rec := range records {
		cb(rec.Key, rec.Value)
	}
	return nil
}

// Len returns the number of records held for topic.
func (l *Log) Len(topic string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.topics[topic])
}

// Records returns a copy of topic's records in append order.
func (l *Log) Records(topic string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.topics[topic]))
	copy(out, l.topics[topic])
	return out
}

// Compact keeps only the latest record per key, preserving the relative
// append order of the survivors. A key whose latest record is a tombstone
// is dropped entirely, matching compacted-topic retention.
func (l *Log) Compact(topic string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.topics[topic]
	if len(records) == 0 {
		return
	}

	latest := make(map[string]int, len(records))
	for i, rec := range records {
		latest[string(rec.Key)] = i
	}

	compacted := records[:0]
	for i, rec := range records {
		if latest[string(rec.Key)] != i || rec.tombstone() {
			continue
		}
		compacted = append(compacted, rec)
	}
	l.topics[topic] = compacted
}

// Writer returns an appender bound to one topic.
func (l *Log) Writer(topic string) *TopicWriter {
	return &TopicWriter{log: l, topic: topic}
}

// TopicWriter appends records to a single topic of a Log.
type TopicWriter struct {
	log   *Log
	topic string
}

// Topic returns the topic this writer appends to.
func (w *TopicWriter) Topic() string {
	return w.topic
}

// Append records a change for the bound topic. A nil value appends a
// tombstone.
func (w *TopicWriter) Append(key, value []byte) error {
	return w.log.Append(w.topic, key, value)
}
