package csp

import (
	"context"
	"math/rand"
	"reflect"

	"github.com/rs/zerolog"
)

// Op is one participant in a Select call: either a receive from, or a
// send to, a specific typed Channel. Concrete values are produced by
// Recv and Send. Op exists so a single Select can hold a heterogeneous
// slice of typed channels behind one non-generic "participant" protocol,
// a tagged variant per element type rather than runtime-erased dispatch.
type Op interface {
	isOp()

	channelID() string
	newWaiter(token *commitToken, index int) any
	fastRegister(w any) (completed bool, err error)
	removeWaiter(w any)
	doneChan(w any) <-chan struct{}
	resultValue(w any) (value any, ok bool)
	release(w any)
}

type opRecv[T any] struct {
	ch *Channel[T]
}

// Recv builds a receive participant for Select/NewSelect.
func Recv[T any](c *Channel[T]) Op {
	return &opRecv[T]{ch: c}
}

func (o *opRecv[T]) isOp()             {}
func (o *opRecv[T]) channelID() string { return o.ch.id }
func (o *opRecv[T]) newWaiter(token *commitToken, index int) any {
	w := o.ch.getWaiter()
	w.token = token
	w.index = index
	return w
}
func (o *opRecv[T]) fastRegister(w any) (bool, error) {
	return o.ch.registerRecv(w.(*waiter[T]))
}
func (o *opRecv[T]) removeWaiter(w any) {
	o.ch.removeReceiver(w.(*waiter[T]))
}
func (o *opRecv[T]) doneChan(w any) <-chan struct{} {
	return w.(*waiter[T]).done
}
func (o *opRecv[T]) resultValue(w any) (any, bool) {
	v, ok := w.(*waiter[T]).value.Get()
	if !ok {
		return nil, false
	}
	return v, true
}
func (o *opRecv[T]) release(w any) {
	o.ch.releaseWaiter(w.(*waiter[T]))
}

type opSend[T any] struct {
	ch  *Channel[T]
	val T
}

// Send builds a send participant for Select/NewSelect carrying the value
// that will be delivered if this operation is the one selected.
func Send[T any](c *Channel[T], v T) Op {
	return &opSend[T]{ch: c, val: v}
}

func (o *opSend[T]) isOp()             {}
func (o *opSend[T]) channelID() string { return o.ch.id }
func (o *opSend[T]) newWaiter(token *commitToken, index int) any {
	w := o.ch.getWaiter()
	w.value = Some(o.val)
	w.token = token
	w.index = index
	return w
}
func (o *opSend[T]) fastRegister(w any) (bool, error) {
	return o.ch.registerSend(w.(*waiter[T]))
}
func (o *opSend[T]) removeWaiter(w any) {
	o.ch.removeSender(w.(*waiter[T]))
}
func (o *opSend[T]) doneChan(w any) <-chan struct{} {
	return w.(*waiter[T]).done
}
func (o *opSend[T]) resultValue(any) (any, bool) {
	return nil, true
}
func (o *opSend[T]) release(w any) {
	o.ch.releaseWaiter(w.(*waiter[T]))
}

// Select multiplexes a fixed set of send/receive operations, performing
// exactly one of them per call with fair (shuffled) choice among those
// ready at once, blocking until at least one becomes ready.
type Select struct {
	ops       []Op
	cleared   []bool
	pollOrder []int

	id      string
	trace   *tracer
	metrics *Metrics
}

// NewSelect constructs a Select over the given operations, in the order
// given (declaration order carries no weight at selection time).
func NewSelect(ops ...Op) *Select {
	s := &Select{
		ops:       ops,
		cleared:   make([]bool, len(ops)),
		pollOrder: make([]int, len(ops)),
	}
	for i := range s.pollOrder {
		s.pollOrder[i] = i
	}
	return s
}

// WithTracer attaches structured zerolog tracing of this Select's commit
// events and returns s, for chaining at construction time.
func (s *Select) WithTracer(log zerolog.Logger) *Select {
	s.trace = newTracer(log)
	s.id = newSelectID()
	return s
}

// WithMetrics attaches prometheus instrumentation to this Select and
// returns s, for chaining at construction time.
func (s *Select) WithMetrics(m *Metrics) *Select {
	s.metrics = m
	return s
}

// ClearAt marks operation i inactive for this and subsequent calls,
// equivalent to a nil channel in Go's built-in select.
func (s *Select) ClearAt(i int) {
	s.cleared[i] = true
}

type parkedOp struct {
	index int
	op    Op
	w     any
}

// scan shuffles the poll order and attempts the non-blocking fast path
// on every non-cleared operation in that order. It returns immediately
// on the first operation that completes; otherwise it returns the set of
// operations it parked.
func (s *Select) scan(token *commitToken) (winIndex int, val any, err error, won bool, parked []parkedOp, active bool) {
	rand.Shuffle(len(s.pollOrder), func(i, j int) {
		s.pollOrder[i], s.pollOrder[j] = s.pollOrder[j], s.pollOrder[i]
	})

	for _, i := range s.pollOrder {
		if s.cleared[i] {
			continue
		}
		active = true
		op := s.ops[i]
		w := op.newWaiter(token, i)
		completed, opErr := op.fastRegister(w)
		if completed {
			// fastRegister only returns completed=true once it has already
			// won w's claim on token under the channel's own lock, so the
			// win recorded here is w's own and never a stale one a sibling
			// operation raced away from it.
			for _, p := range parked {
				p.op.removeWaiter(p.w)
				p.op.release(p.w)
			}
			v, _ := op.resultValue(w)
			op.release(w)
			s.trace.selectCommit(s.id, i, op.channelID())
			s.metrics.incSelectCommit()
			return i, v, opErr, true, nil, true
		}
		parked = append(parked, parkedOp{index: i, op: op, w: w})
	}
	return -1, nil, nil, false, parked, active
}

// Select blocks until exactly one participating operation completes, or
// ctx is cancelled. It returns the winning operation's index and, for a
// Receive op, the received value (nil if the channel was closed).
func (s *Select) Select(ctx context.Context) (int, any, error) {
	token := newCommitToken()
	winIndex, val, err, won, parked, active := s.scan(token)
	if won {
		return winIndex, val, err
	}
	if !active {
		return -1, nil, ErrAllClearedSelect
	}

	cases := make([]reflect.SelectCase, 0, len(parked)+1)
	for _, p := range parked {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(p.op.doneChan(p.w)),
		})
	}
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})

	reflect.Select(cases)

	// Pull every parked waiter off its channel's queue before consulting
	// token: this closes the race reflect.Select can't resolve for us.
	// Whichever case reflect.Select woke on, a sibling operation may have
	// claimed the token concurrently (possibly ctx.Done() fired at the
	// exact moment a counterparty committed one of our parked waiters, in
	// which case reflect.Select is free to pick either ready case). Once
	// every waiter is unreachable from any queue, no further claim can
	// land, so token.winner() read after this loop is final.
	for _, p := range parked {
		p.op.removeWaiter(p.w)
	}

	winIndex = token.winner()
	if winIndex == int(unclaimed) {
		for _, p := range parked {
			p.op.release(p.w)
		}
		return -1, nil, ctx.Err()
	}

	// The winner's done channel is already closed (its committer signals
	// after writing the value); receiving from it establishes the
	// happens-before edge with that write before resultValue reads it.
	for _, p := range parked {
		if p.index == winIndex {
			<-p.op.doneChan(p.w)
			v, _ := p.op.resultValue(p.w)
			val = v
			s.trace.selectCommit(s.id, winIndex, p.op.channelID())
			s.metrics.incSelectCommit()
		}
		p.op.release(p.w)
	}
	return winIndex, val, nil
}

// TrySelect attempts Select without blocking. If no operation is
// immediately ready, it returns (-1, nil, false).
func (s *Select) TrySelect() (int, any, bool) {
	token := newCommitToken()
	winIndex, val, _, won, parked, _ := s.scan(token)
	if won {
		return winIndex, val, true
	}

	// scan parked whatever it couldn't complete synchronously; a
	// counterparty can still claim one of those waiters before we tear
	// them down. Remove them all first, the same way Select does, so the
	// token is final by the time we read it.
	for _, p := range parked {
		p.op.removeWaiter(p.w)
	}
	winIndex = token.winner()
	if winIndex == int(unclaimed) {
		for _, p := range parked {
			p.op.release(p.w)
		}
		return -1, nil, false
	}
	for _, p := range parked {
		if p.index == winIndex {
			<-p.op.doneChan(p.w)
			v, _ := p.op.resultValue(p.w)
			val = v
			s.trace.selectCommit(s.id, winIndex, p.op.channelID())
			s.metrics.incSelectCommit()
		}
		p.op.release(p.w)
	}
	return winIndex, val, true
}
