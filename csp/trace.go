package csp

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// tracer is an optional, structured event sink for rendezvous and select
// commit events. A nil *tracer costs one nil-check on the hot path and
// never touches zerolog or uuid; it is only allocated when a caller opts
// in via WithTracer.
type tracer struct {
	log zerolog.Logger
}

func newTracer(log zerolog.Logger) *tracer {
	return &tracer{log: log}
}

func (t *tracer) rendezvous(event, channelID string) {
	if t == nil {
		return
	}
	t.log.Debug().Str("event", event).Str("channel", channelID).Msg("csp rendezvous")
}

func (t *tracer) parked(event, channelID string) {
	if t == nil {
		return
	}
	t.log.Debug().Str("event", event).Str("channel", channelID).Msg("csp parked")
}

func (t *tracer) selectCommit(selectID string, winner int, channelID string) {
	if t == nil {
		return
	}
	t.log.Debug().Str("select", selectID).Int("winner", winner).Str("channel", channelID).Msg("csp select commit")
}

// newSelectID mints a per-Select-call trace identifier. Only called when
// a Select carries a tracer, so untraced selects never pay for it.
func newSelectID() string {
	return uuid.NewString()
}
