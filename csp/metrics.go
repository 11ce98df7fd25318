package csp

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors shared by every Channel that
// opts in via WithMetrics. Construct one Metrics per process (or per
// subsystem) and register it with a prometheus.Registerer; attach it to
// individual channels with WithMetrics.
type Metrics struct {
	depth     *prometheus.GaugeVec
	parked    *prometheus.GaugeVec
	sends     *prometheus.CounterVec
	receives  *prometheus.CounterVec
	selects   prometheus.Counter
}

// NewMetrics creates and registers the csp collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "csp",
			Name:      "buffer_depth",
			Help:      "Current number of buffered values in a channel.",
		}, []string{"channel"}),
		parked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "csp",
			Name:      "parked_waiters",
			Help:      "Current number of parked senders/receivers.",
		}, []string{"channel", "side"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csp",
			Name:      "sends_total",
			Help:      "Total completed sends.",
		}, []string{"channel"}),
		receives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csp",
			Name:      "receives_total",
			Help:      "Total completed receives.",
		}, []string{"channel"}),
		selects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csp",
			Name:      "select_commits_total",
			Help:      "Total Select calls that committed to a branch.",
		}),
	}
	reg.MustRegister(m.depth, m.parked, m.sends, m.receives, m.selects)
	return m
}

type channelMetrics struct {
	m  *Metrics
	id string
}

func (c *channelMetrics) setDepth(n int) {
	if c == nil {
		return
	}
	c.m.depth.WithLabelValues(c.id).Set(float64(n))
}

func (c *channelMetrics) setParked(side string, n int) {
	if c == nil {
		return
	}
	c.m.parked.WithLabelValues(c.id, side).Set(float64(n))
}

func (c *channelMetrics) incSend() {
	if c == nil {
		return
	}
	c.m.sends.WithLabelValues(c.id).Inc()
}

func (c *channelMetrics) incReceive() {
	if c == nil {
		return
	}
	c.m.receives.WithLabelValues(c.id).Inc()
}

// incSelectCommit records that some Select call committed to a branch.
// It is process-global rather than per-channel, since a single Select
// spans many channels.
func (m *Metrics) incSelectCommit() {
	if m == nil {
		return
	}
	m.selects.Inc()
}
