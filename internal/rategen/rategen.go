// Package rategen drives a rate-limited producer goroutine that feeds
// generated integers into a channel, replacing a hand-rolled ticker loop
// with golang.org/x/time/rate's token bucket.
package rategen

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/go-csp-channels/csp"
)

// Generate starts a goroutine that emits n sequential ints into a freshly
// created channel of the given capacity, paced by a token bucket limiter
// with the given rate and burst. The channel is closed once n items have
// been sent or ctx is cancelled. The returned channel is the sole handle
// a caller needs; Generate does not block.
func Generate(ctx context.Context, capacity int, ratePerSec float64, burst, n int, log zerolog.Logger) (*csp.Channel[int], error) {
	ch, err := csp.NewChannel[int](capacity, csp.WithTracer(log))
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(ratePerSec), burst)
	go func() {
		defer ch.Close()
		for i := 0; i < n; i++ {
			if err := limiter.Wait(ctx); err != nil {
				log.Info().Err(err).Msg("producer stopping: rate limiter context done")
				return
			}
			if err := ch.Send(ctx, i); err != nil {
				log.Info().Err(err).Msg("producer stopping: send failed")
				return
			}
		}
	}()
	return ch, nil
}
