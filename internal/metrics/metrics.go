package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ava"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	droppedFrames prometheus.Counter
	evictions     prometheus.Counter
}

// Gauges are sampled on scrape.
type Gauges struct {
	Channels    func() int
	Subscribers func() int
}

func New(reg prometheus.Registerer, gauges Gauges) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome code.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_dropped_frames_total",
			Help:      "Events evicted from lagging subscribers.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_evictions_total",
			Help:      "Device channels removed from the registry.",
		}),
	}
	collectors := []prometheus.Collector{m.runs, m.stageDuration, m.droppedFrames, m.evictions}
	if gauges.Channels != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_channels",
			Help:      "Live device channels.",
		}, func() float64 { return float64(gauges.Channels()) }))
	}
	if gauges.Subscribers != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Open event stream subscriptions.",
		}, func() float64 { return float64(gauges.Subscribers()) }))
	}
	reg.MustRegister(collectors...)
	return m
}

func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) FramesDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedFrames.Add(float64(n))
}

func (m *Metrics) ChannelEvicted() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}
