package driver

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"

	"example.com/serio/driver/portio"
	"example.com/serio/driver/uart"
)

// State is the dispatcher's position in the transmit state machine.
type State int32

const (
	StateIdle State = iota
	StateDispatching
	StatePolling
	StateTransmitted
	StateTimedOut
	StateCompleting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDispatching:
		return "Dispatching"
	case StatePolling:
		return "Polling"
	case StateTransmitted:
		return "Transmitted"
	case StateTimedOut:
		return "TimedOut"
	case StateCompleting:
		return "Completing"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Staller delays the dispatching goroutine between polls.
type Staller interface {
	Stall(d time.Duration)
}

// SpinStaller busy-waits. There is no interrupt to wake a sleeping dispatcher, so
// the delay is spent spinning on the dispatching goroutine.
type SpinStaller struct{}

func (SpinStaller) Stall(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}

// StallerFunc adapts a function to Staller.
type StallerFunc func(time.Duration)

func (f StallerFunc) Stall(d time.Duration) { f(d) }

// WriteRequest is one write call travelling through the queue. Only Buffer[0] is
// ever transmitted, so BytesCompleted is 0 or 1.
type WriteRequest struct {
	Buffer         []byte
	Length         int
	BytesCompleted int
	Status         error

	polls int
}

// Polls returns how many status reads the request took.
func (r *WriteRequest) Polls() int { return r.polls }

type writeOperation struct {
	req  *WriteRequest
	done chan struct{}
}

// Queue delivers write requests one at a time to the transmit loop. A single
// goroutine consumes it, so dispatch never overlaps and needs no locking.
type Queue struct {
	name        string
	backend     portio.Backend
	base        portio.Addr
	maxAttempts int
	pollDelay   time.Duration
	staller     Staller
	debug       bool
	stats       *stats

	requests  chan *writeOperation
	closing   chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	state   atomic.Int32
	onState atomic.Pointer[func(State)]
}

// NewQueue builds a queue for backend with registers at base. It does not consume
// requests until Start; Dispatch can be called directly without starting it.
func NewQueue(name string, backend portio.Backend, base portio.Addr, cfg Config) (*Queue, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newQueue(name, backend, base, cfg, nil), nil
}

func newQueue(name string, backend portio.Backend, base portio.Addr, cfg Config, st *stats) *Queue {
	if st == nil {
		st = &stats{}
	}
	return &Queue{
		name:        name,
		backend:     backend,
		base:        base,
		maxAttempts: cfg.MaxTxAttempts,
		pollDelay:   cfg.TxPollDelay,
		staller:     cfg.Staller,
		debug:       cfg.Debug,
		stats:       st,
		requests:    make(chan *writeOperation),
		closing:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// State returns the dispatcher's current state.
func (q *Queue) State() State { return State(q.state.Load()) }

// Observe installs f to be called on every state transition, on the dispatching
// goroutine. A nil f removes the observer.
func (q *Queue) Observe(f func(State)) {
	if f == nil {
		q.onState.Store(nil)
		return
	}
	q.onState.Store(&f)
}

func (q *Queue) setState(s State) {
	q.state.Store(int32(s))
	if f := q.onState.Load(); f != nil {
		(*f)(s)
	}
}

// Start launches the consumer goroutine. Later calls do nothing.
func (q *Queue) Start() {
	q.startOnce.Do(func() { go q.run() })
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case op := <-q.requests:
			q.Dispatch(op.req)
			close(op.done)
		case <-q.closing:
			return
		}
	}
}

// Submit queues a write of p and waits for it to complete. ctx bounds only the
// wait for a queue slot: once the request is accepted its poll loop runs to the end
// and Submit reports the result. A submitter still waiting for a slot when the
// queue is closed gets ErrDeviceUnavailable.
func (q *Queue) Submit(ctx context.Context, p []byte) (*WriteRequest, error) {
	select {
	case <-q.closing:
		return nil, q.errClosed()
	default:
	}

	op := &writeOperation{
		req:  &WriteRequest{Buffer: p, Length: len(p)},
		done: make(chan struct{}),
	}
	select {
	case q.requests <- op:
	case <-q.closing:
		return nil, q.errClosed()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	<-op.done
	return op.req, nil
}

func (q *Queue) errClosed() error {
	return fmt.Errorf("%w: %s queue closed", ErrDeviceUnavailable, q.name)
}

// Close stops accepting requests and waits for the request being dispatched, if
// any, to finish. Submitters still waiting for a slot are turned away. It is safe
// to call more than once, and on a queue that was never started.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closing) })
	q.startOnce.Do(func() { close(q.done) })
	<-q.done
}

// Dispatch runs the transmit state machine for req on the calling goroutine.
//
// A zero-length request fails with ErrInvalidArgument before any register is read.
// Otherwise the first byte is offered to the UART up to maxAttempts times, with a
// stall between attempts. Running out of attempts is a short write: Status stays
// nil and BytesCompleted stays 0.
func (q *Queue) Dispatch(req *WriteRequest) {
	q.setState(StateDispatching)
	q.stats.requests.Inc()

	if req.Length == 0 || len(req.Buffer) < req.Length {
		req.Status = fmt.Errorf("%w: write length %d, buffer %d", ErrInvalidArgument, req.Length, len(req.Buffer))
		q.stats.invalid.Inc()
		q.complete(req)
		return
	}

	txByte := req.Buffer[0]
	if q.debug {
		log.Printf("Queue %s: transmit start - byte=0x%02X, max_attempts=%d", q.name, txByte, q.maxAttempts)
	}

	q.setState(StatePolling)
	attempts := 0
	for attempts < q.maxAttempts {
		sent, lsr := uart.TryTransmitByteStatus(q.backend, q.base, txByte)
		req.polls++
		q.stats.polls.Inc()
		if q.debug {
			log.Printf("Queue %s: attempt=%d, LSR=0x%02X", q.name, attempts+1, lsr)
		}
		if sent {
			req.BytesCompleted = 1
			q.stats.transmitted.Inc()
			q.setState(StateTransmitted)
			if q.debug {
				log.Printf("Queue %s: byte 0x%02X transmitted", q.name, txByte)
			}
			break
		}
		attempts++
		if attempts == q.maxAttempts {
			q.stats.timeouts.Inc()
			q.setState(StateTimedOut)
			if q.debug {
				log.Printf("Queue %s: transmitter not ready (timeout)", q.name)
			}
			break
		}
		q.staller.Stall(q.pollDelay)
	}

	q.complete(req)
}

func (q *Queue) complete(req *WriteRequest) {
	q.setState(StateCompleting)
	if q.debug {
		log.Printf("Queue %s: complete - bytes=%d, status=%v, polls=%d", q.name, req.BytesCompleted, req.Status, req.polls)
	}
	q.setState(StateIdle)
}

// Stats is a snapshot of a device's transmit counters.
type Stats struct {
	Requests    uint64
	Transmitted uint64
	TimedOut    uint64
	Invalid     uint64
	Polls       uint64
}

type stats struct {
	requests    atomic.Uint64
	transmitted atomic.Uint64
	timeouts    atomic.Uint64
	invalid     atomic.Uint64
	polls       atomic.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Requests:    s.requests.Load(),
		Transmitted: s.transmitted.Load(),
		TimedOut:    s.timeouts.Load(),
		Invalid:     s.invalid.Load(),
		Polls:       s.polls.Load(),
	}
}
