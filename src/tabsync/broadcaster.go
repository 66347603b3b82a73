package tabsync

import (
	"errors"
	"sync"
)

// ErrBusClosed is returned by Publish once the bus has shut down.
var ErrBusClosed = errors.New("bus is closed")

// Broadcaster is the same-origin transport between tabs. Delivery is
// at-least-once and unordered relative to local mutations; every consumer
// of this interface must merge commutatively and idempotently.
type Broadcaster interface {
	// Publish delivers the message to every subscriber, including ones on
	// the publishing tab (the channel filters by sender id). Returns
	// ErrBusClosed after Close; it never panics, so a host tearing the
	// transport down early degrades instead of crashing.
	Publish(msg SyncMessage) error
	// Subscribe registers a handler and returns its cancel function.
	Subscribe(fn func(SyncMessage)) (cancel func())
	Close() error
}

// MemoryBus is the in-process Broadcaster: a buffered channel with a fanout
// goroutine. Handlers run sequentially on that goroutine.
type MemoryBus struct {
	mu       sync.Mutex
	messages chan SyncMessage
	handlers map[int]func(SyncMessage)
	nextID   int
	quit     chan struct{}
	done     chan struct{}
	closed   bool
	inflight sync.WaitGroup
}

// NewMemoryBus creates a running bus.
func NewMemoryBus(bufferSize int) *MemoryBus {
	bus := &MemoryBus{
		messages: make(chan SyncMessage, bufferSize),
		handlers: make(map[int]func(SyncMessage)),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go bus.fanout()
	return bus
}

func (b *MemoryBus) Publish(msg SyncMessage) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	// registered before releasing the lock so Close waits for this send
	// to settle before it closes the message channel
	b.inflight.Add(1)
	b.mu.Unlock()
	defer b.inflight.Done()

	select {
	case b.messages <- msg:
		return nil
	case <-b.quit:
		return ErrBusClosed
	}
}

func (b *MemoryBus) Subscribe(fn func(SyncMessage)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Close stops accepting messages, waits for in-flight publishers, drains
// the queue through the fanout goroutine and returns. Idempotent.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.quit)
	b.inflight.Wait()
	close(b.messages)
	<-b.done
	return nil
}

func (b *MemoryBus) fanout() {
	defer close(b.done)
	for msg := range b.messages {
		b.mu.Lock()
		handlers := make([]func(SyncMessage), 0, len(b.handlers))
		for _, fn := range b.handlers {
			handlers = append(handlers, fn)
		}
		b.mu.Unlock()
		for _, fn := range handlers {
			fn(msg)
		}
	}
}
