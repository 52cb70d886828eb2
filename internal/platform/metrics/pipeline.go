// Package metrics exposes Prometheus collectors for each pipeline stage
// boundary and keeps running totals for the periodic analytics push.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livebaz"

// Pipeline is safe for concurrent use. A nil *Pipeline discards everything.
type Pipeline struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	stageRecords    *prometheus.GaugeVec
	recordsDropped  *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	connections     prometheus.Gauge
	providerCalls   *prometheus.CounterVec

	totals totals
}

type totals struct {
	cycles          atomic.Int64
	degradedCycles  atomic.Int64
	recordsDropped  atomic.Int64
	eventsPublished atomic.Int64
	goalEvents      atomic.Int64
	delivered       atomic.Int64
	droppedSends    atomic.Int64
	providerErrors  atomic.Int64
}

func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_cycles_total",
				Help:      "Completed ingestion cycles by data class and outcome.",
			},
			[]string{"class", "outcome"},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_cycle_duration_seconds",
				Help:      "Wall time of one ingestion cycle.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"class"},
		),
		stageRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ingest_stage_records",
				Help:      "Records seen at each stage of the latest cycle.",
			},
			[]string{"class", "stage"},
		),
		recordsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_dropped_total",
				Help:      "Raw records rejected by the normalizer.",
			},
			[]string{"source"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events handed to the broker by kind.",
			},
			[]string{"kind"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fanout_deliveries_total",
				Help:      "Per-connection deliveries by result.",
			},
			[]string{"result"},
		),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Currently connected subscribers.",
		}),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Provider feed requests by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
	}
	p.registry.MustRegister(
		p.cycles,
		p.cycleDuration,
		p.stageRecords,
		p.recordsDropped,
		p.eventsPublished,
		p.deliveries,
		p.connections,
		p.providerCalls,
	)
	return p
}

func (p *Pipeline) Registry() *prometheus.Registry {
	if p == nil {
		return prometheus.NewRegistry()
	}
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry(), promhttp.HandlerOpts{})
}

func (p *Pipeline) CycleCompleted(class string, degraded bool, elapsed time.Duration) {
	if p == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
		p.totals.degradedCycles.Add(1)
	}
	p.totals.cycles.Add(1)
	p.cycles.WithLabelValues(class, outcome).Inc()
	p.cycleDuration.WithLabelValues(class).Observe(elapsed.Seconds())
}

// StageRecords records how many records a class had at a stage boundary
// (provider, local, merged, published).
func (p *Pipeline) StageRecords(class, stage string, count int) {
	if p == nil {
		return
	}
	p.stageRecords.WithLabelValues(class, stage).Set(float64(count))
}

func (p *Pipeline) RecordDropped(source string) {
	if p == nil {
		return
	}
	p.totals.recordsDropped.Add(1)
	p.recordsDropped.WithLabelValues(source).Inc()
}

func (p *Pipeline) EventPublished(kind string) {
	if p == nil {
		return
	}
	p.totals.eventsPublished.Add(1)
	if kind == "goal-scored" {
		p.totals.goalEvents.Add(1)
	}
	p.eventsPublished.WithLabelValues(kind).Inc()
}

func (p *Pipeline) FanOut(delivered, dropped int) {
	if p == nil {
		return
	}
	if delivered > 0 {
		p.totals.delivered.Add(int64(delivered))
		p.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	}
	if dropped > 0 {
		p.totals.droppedSends.Add(int64(dropped))
		p.deliveries.WithLabelValues("dropped").Add(float64(dropped))
	}
}

func (p *Pipeline) ConnectionOpened() {
	if p == nil {
		return
	}
	p.connections.Inc()
}

func (p *Pipeline) ConnectionClosed() {
	if p == nil {
		return
	}
	p.connections.Dec()
}

func (p *Pipeline) ProviderRequest(endpoint string, err error) {
	if p == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		p.totals.providerErrors.Add(1)
	}
	p.providerCalls.WithLabelValues(endpoint, outcome).Inc()
}

// Totals is a point-in-time copy of the running counters.
type Totals struct {
	Cycles          int64 `json:"cycles"`
	DegradedCycles  int64 `json:"degradedCycles"`
	RecordsDropped  int64 `json:"recordsDropped"`
	EventsPublished int64 `json:"eventsPublished"`
	GoalEvents      int64 `json:"goalEvents"`
	Delivered       int64 `json:"delivered"`
	DroppedSends    int64 `json:"droppedSends"`
	ProviderErrors  int64 `json:"providerErrors"`
}

func (p *Pipeline) Totals() Totals {
	if p == nil {
		return Totals{}
	}
	return Totals{
		Cycles:          p.totals.cycles.Load(),
		DegradedCycles:  p.totals.degradedCycles.Load(),
		RecordsDropped:  p.totals.recordsDropped.Load(),
		EventsPublished: p.totals.eventsPublished.Load(),
		GoalEvents:      p.totals.goalEvents.Load(),
		Delivered:       p.totals.delivered.Load(),
		DroppedSends:    p.totals.droppedSends.Load(),
		ProviderErrors:  p.totals.providerErrors.Load(),
	}
}

// Sub returns the counters accumulated since prev.
func (t Totals) Sub(prev Totals) Totals {
	return Totals{
		Cycles:          t.Cycles - prev.Cycles,
		DegradedCycles:  t.DegradedCycles - prev.DegradedCycles,
		RecordsDropped:  t.RecordsDropped - prev.RecordsDropped,
		EventsPublished: t.EventsPublished - prev.EventsPublished,
		GoalEvents:      t.GoalEvents - prev.GoalEvents,
		Delivered:       t.Delivered - prev.Delivered,
		DroppedSends:    t.DroppedSends - prev.DroppedSends,
		ProviderErrors:  t.ProviderErrors - prev.ProviderErrors,
	}
}
