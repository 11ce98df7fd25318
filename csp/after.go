package csp

import "time"

// After returns a buffered Channel of capacity 1 that receives the
// current time once d has elapsed, then closes. It is a timer collaborator
// external to the core protocol, built entirely on the public Channel API.
// TrySend then Close is safe even if nothing ever reads the channel.
func After(d time.Duration) *Channel[time.Time] {
	ch, _ := NewChannel[time.Time](1)
	time.AfterFunc(d, func() {
		ch.TrySend(time.Now())
		ch.Close()
	})
	return ch
}
