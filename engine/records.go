package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors for record pool operations
var (
	ErrPoolShutDown = errors.New("record pool is shut down")
	ErrQueueFull    = errors.New("record queue is full")
)

// Record is one stream record flowing through a processing task.
type Record struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// ProcessFunc applies one record, typically mutating a local state store.
type ProcessFunc func(rec *Record) error

// PoolStats contains record pool statistics.
type PoolStats struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Pending   int    `json:"pending"`
}

// RecordPool fans stream records out to a fixed set of worker goroutines,
// each applying the pool's ProcessFunc. State stores written by the
// process function see exactly the concurrent-caller pattern of a task
// pool.
type RecordPool struct {
	name    string
	workers int
	process ProcessFunc
	records chan *Record
	wg      sync.WaitGroup

	// Atomic counters for thread-safe statistics
	processed int64
	failed    int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// NewRecordPool creates a record pool with the given number of workers and
// starts them.
func NewRecordPool(name string, workers int, process ProcessFunc) *RecordPool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &RecordPool{
		name:    name,
		workers: workers,
		process: process,
		records: make(chan *Record, workers*100),
		ctx:     ctx,
		cancel:  cancel,
		running: true,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// worker drains the record channel until shutdown.
func (p *RecordPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case rec, ok := <-p.records:
			if !ok {
				return
			}
			p.apply(rec)
		}
	}
}

// apply runs the process function with panic recovery, so one bad record
// cannot take down the pool.
func (p *RecordPool) apply(rec *Record) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.failed, 1)
		}
	}()

	if err := p.process(rec); err != nil {
		atomic.AddInt64(&p.failed, 1)
		return
	}
	atomic.AddInt64(&p.processed, 1)
}

// Submit queues a record for processing without blocking.
func (p *RecordPool) Submit(rec *Record) error {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	if !running {
		return ErrPoolShutDown
	}

	select {
	case p.records <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stats returns current pool statistics.
func (p *RecordPool) Stats() PoolStats {
	return PoolStats{
		Name:      p.name,
		Workers:   p.workers,
		Processed: atomic.LoadInt64(&p.processed),
		Failed:    atomic.LoadInt64(&p.failed),
		Pending:   len(p.records),
	}
}

// Shutdown stops accepting records and waits for workers to drain.
func (p *RecordPool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.records)
	p.wg.Wait()
	p.cancel()
}
