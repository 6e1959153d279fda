// Package store provides local state stores for FlowState processing tasks.
// This package implements:
// - KeyValueStore interface shared by all local state stores
// - MemoryLRUStore: bounded in-memory store with LRU eviction
// - LoggedStore: changelog-writing decorator around any KeyValueStore
package store
