// Package engine provides the processing-task runtime that state stores
// plug into.
// This package implements:
// - Context: per-task initialization context with ambient serdes and
//   changelog registration/restore
// - RecordPool: goroutine pool applying stream records to processors
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/HoangNam-dev/FlowState-Engine/changelog"
)

// Common errors for context operations
var (
	ErrNotRegistered = errors.New("no restore callback registered for topic")
)

// RestoreFunc receives one historical change record during restore. A nil
// value marks a tombstone.
type RestoreFunc func(key, value []byte)

// ChangelogTopic returns the changelog topic name for a store of the given
// application.
func ChangelogTopic(applicationID, storeName string) string {
	return applicationID + "-" + storeName + "-changelog"
}

// registration is one store's restore hookup.
type registration struct {
	logCompacted bool
	restore      RestoreFunc
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithDefaultSerdes sets the ambient serdes stores fall back to when
// constructed without their own. They are held untyped; a store asserts
// them against its key and value types at Init.
func WithDefaultSerdes(keySerde, valueSerde any) ContextOption {
	return func(c *Context) {
		c.keySerde = keySerde
		c.valueSerde = valueSerde
	}
}

// WithChangelog sets the change log registered stores append to and
// restore from.
func WithChangelog(log *changelog.Log) ContextOption {
	return func(c *Context) {
		c.changelog = log
	}
}

// Context is the initialization context handed to state stores. It
// supplies the application identifier, ambient default serdes, and access
// to the change log for registration, appending, and restore.
type Context struct {
	applicationID string
	keySerde      any
	valueSerde    any
	changelog     *changelog.Log

	mu            sync.Mutex
	registrations map[string]registration
}

// NewContext creates a Context for the given application. Without
// WithChangelog a fresh in-memory log is used.
func NewContext(applicationID string, opts ...ContextOption) *Context {
	c := &Context{
		applicationID: applicationID,
		registrations: make(map[string]registration),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.changelog == nil {
		c.changelog = changelog.NewLog()
	}
	return c
}

// ApplicationID returns the application identifier.
func (c *Context) ApplicationID() string {
	return c.applicationID
}

// DefaultKeySerde returns the ambient key serde, nil if none was set.
func (c *Context) DefaultKeySerde() any {
	return c.keySerde
}

// DefaultValueSerde returns the ambient value serde, nil if none was set.
func (c *Context) DefaultValueSerde() any {
	return c.valueSerde
}

// Changelog returns the context's change log.
func (c *Context) Changelog() *changelog.Log {
	return c.changelog
}

// Register records a restore callback for topic. logCompacted marks the
// topic as compacted; the flag is informative for the log's retention and
// has no effect on restore itself. A second registration for the same
// topic replaces the first.
func (c *Context) Register(topic string, logCompacted bool, cb RestoreFunc) {
	c.mu.Lock()
	c.registrations[topic] = registration{logCompacted: logCompacted, restore: cb}
	c.mu.Unlock()
}

// Registered reports whether topic has a restore callback.
func (c *Context) Registered(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.registrations[topic]
	return ok
}

// Appender returns a change log writer bound to topic.
func (c *Context) Appender(topic string) *changelog.TopicWriter {
	return c.changelog.Writer(topic)
}

// Restore replays topic's history through its registered callback. The
// callback runs the store's ordinary write path, so replay order decides
// final recency and may itself trigger evictions.
func (c *Context) Restore(topic string) error {
	c.mu.Lock()
	reg, ok := c.registrations[topic]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("restore %q: %w", topic, ErrNotRegistered)
	}
	return c.changelog.Replay(topic, reg.restore)
}

// RestoreAll replays every registered topic.
func (c *Context) RestoreAll() error {
	c.mu.Lock()
	topics := make([]string, 0, len(c.registrations))
	for topic := range c.registrations {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	for _, topic := range topics {
		if err := c.Restore(topic); err != nil {
			return err
		}
	}
	return nil
}
