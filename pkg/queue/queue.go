// Package queue provides the task-dispatch facility backing the deferred
// log writer. The core only needs a submit capability; the queue's
// internal mechanics (retries, persistence) belong to the dispatcher
// implementation behind the interface.
package queue

import (
	"fmt"
	"sync"
)

// DefaultQueue is the queue name used when none is configured.
const DefaultQueue = "default"

// Dispatcher hands a payload to a named queue. Dispatch failures are
// immediate; there is no internal retry.
type Dispatcher interface {
	Dispatch(queue string, payload []byte) error
}

// Handler consumes payloads drained from a queue.
type Handler func(queue string, payload []byte)

var (
	dispatcherMu sync.RWMutex
	dispatchers  = make(map[string]Dispatcher)
)

// RegisterDispatcher makes a dispatcher available under a connection name.
// The empty name is the default connection.
func RegisterDispatcher(connection string, d Dispatcher) {
	dispatcherMu.Lock()
	defer dispatcherMu.Unlock()
	dispatchers[connection] = d
}

// Connection returns the dispatcher registered under the connection name.
func Connection(connection string) (Dispatcher, bool) {
	dispatcherMu.RLock()
	defer dispatcherMu.RUnlock()
	d, ok := dispatchers[connection]
	return d, ok
}

// UnregisterDispatcher removes a named dispatcher. Mainly useful in tests.
func UnregisterDispatcher(connection string) {
	dispatcherMu.Lock()
	defer dispatcherMu.Unlock()
	delete(dispatchers, connection)
}

// InProc is an in-process Dispatcher: each named queue gets a buffered
// channel drained by a single worker goroutine, so ordering is FIFO per
// queue and unspecified across queues.
type InProc struct {
	handler Handler
	buffer  int

	mu     sync.Mutex
	queues map[string]chan []byte
	wg     sync.WaitGroup
	closed bool
}

// NewInProc creates an in-process dispatcher draining into handler.
// buffer bounds each queue; a full queue fails the dispatch immediately.
func NewInProc(buffer int, handler Handler) *InProc {
	if buffer <= 0 {
		buffer = 256
	}
	return &InProc{
		handler: handler,
		buffer:  buffer,
		queues:  make(map[string]chan []byte),
	}
}

// Dispatch enqueues the payload on the named queue, starting its worker on
// first use.
func (d *InProc) Dispatch(queue string, payload []byte) error {
	if queue == "" {
		queue = DefaultQueue
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("queue: dispatcher is closed")
	}
	ch, ok := d.queues[queue]
	if !ok {
		ch = make(chan []byte, d.buffer)
		d.queues[queue] = ch
		d.wg.Add(1)
		go d.drain(queue, ch)
	}

	// The send stays under the lock so a concurrent Close cannot close
	// the channel mid-send. It never blocks: a full buffer takes the
	// default branch instead.
	select {
	case ch <- payload:
		return nil
	default:
		return fmt.Errorf("queue: %q is full", queue)
	}
}

func (d *InProc) drain(queue string, ch <-chan []byte) {
	defer d.wg.Done()
	for payload := range ch {
		d.handler(queue, payload)
	}
}

// Close stops accepting work, drains the queues, and waits for the workers
// to finish.
func (d *InProc) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.queues {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

var _ Dispatcher = (*InProc)(nil)
