package csp

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Channel is a typed, bounded (optionally zero-capacity) FIFO queue
// supporting blocking send/receive, non-blocking send/receive, and
// close, with the same rendezvous semantics as Go's built-in channels.
// It is implemented from first principles: a ring buffer, two FIFO
// waiter queues, and a mutex, rather than a wrapper over `chan`.
type Channel[T any] struct {
	mu        sync.Mutex
	buf       ringBuffer[T]
	senders   waiterQueue[T]
	receivers waiterQueue[T]
	closed    bool
	capacity  int

	id      string
	pool    *waiterPool[T]
	trace   *tracer
	metrics *channelMetrics
}

// ChannelOption configures optional ambient behavior on a Channel.
type ChannelOption func(*channelConfig)

type channelConfig struct {
	log *tracer
	m   *Metrics
}

// WithTracer attaches structured zerolog tracing of rendezvous and close
// events to a Channel. Omit it (the default) for zero tracing overhead.
func WithTracer(log zerolog.Logger) ChannelOption {
	return func(c *channelConfig) { c.log = newTracer(log) }
}

// WithMetrics attaches prometheus instrumentation to a Channel.
func WithMetrics(m *Metrics) ChannelOption {
	return func(c *channelConfig) { c.m = m }
}

// NewChannel creates a channel with the given fixed capacity. Capacity 0
// is an unbuffered, rendezvous-only channel. Negative capacity is
// rejected with ErrInvalidCapacity.
func NewChannel[T any](capacity int, opts ...ChannelOption) (*Channel[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("csp: capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	cfg := &channelConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	c := &Channel[T]{
		buf:      newRingBuffer[T](capacity),
		capacity: capacity,
		id:       uuid.NewString(),
		pool:     newWaiterPool[T](),
		trace:    cfg.log,
	}
	if cfg.m != nil {
		c.metrics = &channelMetrics{m: cfg.m, id: c.id}
	}
	return c, nil
}

// Send blocks until v is delivered to a receiver or buffered, or ctx is
// cancelled. On a channel that is already closed it returns
// ErrClosedChannel at once; a Send already parked when Close runs is not
// woken by Close.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	w := c.pool.get()
	w.value = Some(v)
	completed, err := c.registerSend(w)
	if completed {
		c.pool.put(w)
		return err
	}
	select {
	case <-w.done:
		c.pool.put(w)
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		c.senders.remove(w)
		c.mu.Unlock()
		select {
		case <-w.done:
			c.pool.put(w)
			return nil
		default:
			c.pool.put(w)
			return ctx.Err()
		}
	}
}

// TrySend attempts to send without blocking. It returns false both when
// the send would block and when the channel is closed.
func (c *Channel[T]) TrySend(v T) bool {
	w := c.pool.get()
	w.value = Some(v)
	completed, err := c.doRegisterSend(w, false)
	c.pool.put(w)
	return completed && err == nil
}

// Receive blocks until a value is available or the channel is closed and
// drained (Maybe with ok=false), or ctx is cancelled.
func (c *Channel[T]) Receive(ctx context.Context) Maybe[T] {
	w := c.pool.get()
	completed, _ := c.registerRecv(w)
	if completed {
		v := w.value
		c.pool.put(w)
		return v
	}
	select {
	case <-w.done:
		v := w.value
		c.pool.put(w)
		return v
	case <-ctx.Done():
		c.mu.Lock()
		c.receivers.remove(w)
		c.mu.Unlock()
		select {
		case <-w.done:
			v := w.value
			c.pool.put(w)
			return v
		default:
			c.pool.put(w)
			return None[T]()
		}
	}
}

// TryReceive attempts to receive without blocking. It returns ok=false
// both when the receive would block and when the channel is closed and
// drained.
func (c *Channel[T]) TryReceive() Maybe[T] {
	w := c.pool.get()
	completed, _ := c.doRegisterRecv(w, false)
	var result Maybe[T]
	if completed {
		result = w.value
	}
	c.pool.put(w)
	return result
}

// Close is idempotent. It wakes every currently parked receiver with a
// closed result. It does not touch parked senders: a send already
// parked when Close runs is allowed to complete if a receiver drains it
// later.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.senders.empty() && c.buf.empty() {
		for {
			r := c.receivers.dequeue()
			if r == nil {
				break
			}
			r.value = None[T]()
			r.signal()
		}
	}
	c.mu.Unlock()
	c.trace.rendezvous("close", c.id)
}

// registerSend is the blocking-capable send fast path, used both by Send
// and by Select: if it cannot complete immediately it parks w on the
// sender queue and returns (false, nil).
func (c *Channel[T]) registerSend(w *waiter[T]) (completed bool, err error) {
	return c.doRegisterSend(w, true)
}

// doRegisterSend commits w to one of three irreversible outcomes (direct
// handoff, buffer enqueue, or immediate close error) or parks it. When w
// carries a Select token, every completing branch calls w.claim() under
// this channel's lock before mutating anything, so a w whose token was
// already won by a sibling operation on another channel cannot also win
// here; it falls through as not completed instead.
func (c *Channel[T]) doRegisterSend(w *waiter[T], allowPark bool) (completed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if !w.claim() {
			return false, nil
		}
		return true, ErrClosedChannel
	}
	if c.buf.empty() {
		if r := c.receivers.dequeue(); r != nil {
			if !w.claim() {
				c.receivers.pushFront(r)
				return false, nil
			}
			r.value = w.value
			r.signal()
			c.metrics.incSend()
			c.metrics.incReceive()
			c.trace.rendezvous("send-direct", c.id)
			return true, nil
		}
	}
	if !c.buf.full() {
		if !w.claim() {
			return false, nil
		}
		v, _ := w.value.Get()
		c.buf.enqueue(v)
		c.metrics.setDepth(c.buf.len())
		c.metrics.incSend()
		return true, nil
	}
	if !allowPark {
		return false, nil
	}
	c.senders.enqueue(w)
	c.metrics.setParked("send", c.senders.len())
	c.trace.parked("send", c.id)
	return false, nil
}

// registerRecv is the blocking-capable receive fast path. On a closed,
// empty channel it returns (true, nil) immediately with w.value unset
// (None) and never enqueues — callers must treat this the same as any
// other immediate completion.
func (c *Channel[T]) registerRecv(w *waiter[T]) (completed bool, err error) {
	return c.doRegisterRecv(w, true)
}

// doRegisterRecv is doRegisterSend's mirror image: every branch that would
// complete w first calls w.claim(), so a losing Select participant never
// drains the buffer or consumes a waiting sender out from under the
// sibling operation that already won.
func (c *Channel[T]) doRegisterRecv(w *waiter[T], allowPark bool) (completed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.buf.empty() {
		if !w.claim() {
			return false, nil
		}
		v := c.buf.dequeue()
		if s := c.senders.dequeue(); s != nil {
			sv, _ := s.value.Get()
			c.buf.enqueue(sv)
			s.signal()
			c.metrics.incSend()
		}
		c.metrics.setDepth(c.buf.len())
		c.metrics.incReceive()
		w.value = Some(v)
		return true, nil
	}
	if s := c.senders.dequeue(); s != nil {
		if !w.claim() {
			c.senders.pushFront(s)
			return false, nil
		}
		w.value = s.value
		s.signal()
		c.metrics.incSend()
		c.metrics.incReceive()
		c.trace.rendezvous("recv-direct", c.id)
		return true, nil
	}
	if c.closed {
		if !w.claim() {
			return false, nil
		}
		w.value = None[T]()
		return true, nil
	}
	if !allowPark {
		return false, nil
	}
	c.receivers.enqueue(w)
	c.metrics.setParked("recv", c.receivers.len())
	c.trace.parked("recv", c.id)
	return false, nil
}

func (c *Channel[T]) removeSender(w *waiter[T]) {
	c.mu.Lock()
	c.senders.remove(w)
	c.mu.Unlock()
}

func (c *Channel[T]) removeReceiver(w *waiter[T]) {
	c.mu.Lock()
	c.receivers.remove(w)
	c.mu.Unlock()
}

func (c *Channel[T]) getWaiter() *waiter[T] {
	return c.pool.get()
}

func (c *Channel[T]) releaseWaiter(w *waiter[T]) {
	c.pool.put(w)
}
