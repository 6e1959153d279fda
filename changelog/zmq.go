package changelog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// Common errors for changelog transport
var (
	ErrNotRunning     = errors.New("changelog transport is not running")
	ErrAlreadyRunning = errors.New("changelog transport is already running")
)

// Publisher broadcasts change records to followers over a ZeroMQ PUB
// socket. Each message carries two frames: the topic name and one
// Arrow-encoded segment of records.
type Publisher struct {
	address string

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pub     zmq4.Socket
	running bool
}

// NewPublisher creates a publisher that binds to address, for example
// "tcp://127.0.0.1:5600".
func NewPublisher(address string) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Publisher{
		address: address,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Address returns the bind address.
func (p *Publisher) Address() string {
	return p.address
}

// IsRunning reports whether the publisher socket is bound.
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start binds the PUB socket.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	p.pub = zmq4.NewPub(p.ctx)
	if err := p.pub.Listen(p.address); err != nil {
		return fmt.Errorf("failed to bind publisher: %w", err)
	}
	p.running = true
	return nil
}

// Publish encodes records into one segment and broadcasts it on topic.
func (p *Publisher) Publish(topic string, records []Record) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrNotRunning
	}

	segment, err := EncodeSegment(records)
	if err != nil {
		return err
	}
	msg := zmq4.NewMsgFrom([]byte(topic), segment)
	if err := p.pub.Send(msg); err != nil {
		return fmt.Errorf("failed to publish segment: %w", err)
	}
	return nil
}

// Stop closes the publisher socket.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	p.cancel()

	if p.pub != nil {
		if err := p.pub.Close(); err != nil {
			// errors are expected during shutdown
			_ = err
		}
	}
}

// ApplyFunc receives one change record from a followed topic. A nil value
// marks a tombstone.
type ApplyFunc func(topic string, key, value []byte)

// Follower subscribes to a publisher and applies received change records,
// typically into a restoring store or a standby replica.
type Follower struct {
	address string
	topics  []string
	apply   ApplyFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	sub     zmq4.Socket
	running bool
	wg      sync.WaitGroup
}

// NewFollower creates a follower of the given topics at address. Received
// records are handed to apply in message order.
func NewFollower(address string, topics []string, apply ApplyFunc) *Follower {
	ctx, cancel := context.WithCancel(context.Background())
	return &Follower{
		address: address,
		topics:  append([]string(nil), topics...),
		apply:   apply,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Address returns the publisher address the follower dials.
func (f *Follower) Address() string {
	return f.address
}

// Topics returns the subscribed topics.
func (f *Follower) Topics() []string {
	return append([]string(nil), f.topics...)
}

// IsRunning reports whether the receive loop is active.
func (f *Follower) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Start dials the publisher, subscribes, and begins receiving.
func (f *Follower) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return ErrAlreadyRunning
	}

	f.sub = zmq4.NewSub(f.ctx)
	if err := f.sub.Dial(f.address); err != nil {
		return fmt.Errorf("failed to dial publisher: %w", err)
	}
	for _, topic := range f.topics {
		if err := f.sub.SetOption(zmq4.OptionSubscribe, topic); err != nil {
			return fmt.Errorf("failed to subscribe to %q: %w", topic, err)
		}
	}

	f.running = true
	f.wg.Add(1)
	go f.receiveLoop()
	return nil
}

// receiveLoop applies incoming segments until the follower stops.
func (f *Follower) receiveLoop() {
	defer f.wg.Done()

	for {
		msg, err := f.sub.Recv()
		if err != nil {
			select {
			case <-f.ctx.Done():
				return
			default:
				log.Printf("changelog follower: receive failed: %v", err)
				continue
			}
		}
		if len(msg.Frames) != 2 {
			log.Printf("changelog follower: dropping message with %d frames", len(msg.Frames))
			continue
		}

		topic := string(msg.Frames[0])
		records, err := DecodeSegment(msg.Frames[1])
		if err != nil {
			log.Printf("changelog follower: dropping bad segment on %q: %v", topic, err)
			continue
		}
		for _, rec := range records {
			f.apply(topic, rec.Key, rec.Value)
		}
	}
}

// Stop shuts down the receive loop and closes the socket.
func (f *Follower) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	f.mu.Unlock()

	f.cancel()
	if f.sub != nil {
		if err := f.sub.Close(); err != nil {
			_ = err
		}
	}
	f.wg.Wait()
}
