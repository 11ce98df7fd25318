package csp

import (
	"context"
	"iter"
)

// All returns a range-over-func iterator that receives values until the
// channel is closed and drained: a Channel viewed as a lazy, finite
// sequence of T that suspends the consumer on each element.
//
//	for v := range ch.All(ctx) {
//	    ...
//	}
func (c *Channel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			m := c.Receive(ctx)
			v, ok := m.Get()
			if !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}
