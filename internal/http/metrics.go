package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the shuffler's Prometheus collectors and satisfies core.Metrics.
type Metrics struct {
	PushesTotal       *prometheus.CounterVec
	PollsTotal        *prometheus.CounterVec
	RefillsTotal      prometheus.Counter
	RetriesTotal      *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	TableTracks       prometheus.Gauge
	TableWeight       prometheus.Gauge
	MaterializedTotal prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		PushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bettershuffle_pushes_total",
				Help: "Total number of tracks pushed to the playback queue",
			},
			[]string{"repeat"},
		),
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bettershuffle_polls_total",
				Help: "Total number of playback polls by outcome",
			},
			[]string{"result"},
		),
		RefillsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bettershuffle_refills_total",
				Help: "Total number of queue refills",
			},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bettershuffle_retries_total",
				Help: "Total number of retried remote operations",
			},
			[]string{"op"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bettershuffle_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		TableTracks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bettershuffle_table_tracks",
				Help: "Number of tracks in the active weight table",
			},
		),
		TableWeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bettershuffle_table_weight",
				Help: "Total weight of the active weight table",
			},
		),
		MaterializedTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bettershuffle_materialized_tracks",
				Help: "Length of the last materialized playlist",
			},
		),
	}

	reg.MustRegister(
		metrics.PushesTotal,
		metrics.PollsTotal,
		metrics.RefillsTotal,
		metrics.RetriesTotal,
		metrics.ErrorsTotal,
		metrics.TableTracks,
		metrics.TableWeight,
		metrics.MaterializedTotal,
	)

	return metrics
}

func (m *Metrics) RecordPush(repeat bool) {
	label := "false"
	if repeat {
		label = "true"
	}
	m.PushesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) RecordPoll(result string) {
	m.PollsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRefill() {
	m.RefillsTotal.Inc()
}

func (m *Metrics) RecordRetry(op string) {
	m.RetriesTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func (m *Metrics) SetTable(tracks, totalWeight int) {
	m.TableTracks.Set(float64(tracks))
	m.TableWeight.Set(float64(totalWeight))
}

func (m *Metrics) SetMaterialized(tracks int) {
	m.MaterializedTotal.Set(float64(tracks))
}
