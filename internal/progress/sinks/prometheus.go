package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/civicledger/actas-harvester/internal/progress"
)

// PrometheusSink exports harvest progress metrics. It owns the collectors for
// pass lifecycle, per-status acta outcomes, and fetch/upload volume.
type PrometheusSink struct {
	passesStarted prometheus.Counter
	passesDone    prometheus.Counter
	passDuration  prometheus.Histogram

	actasDone     *prometheus.CounterVec
	filesFetched  *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	uploadBytes   prometheus.Counter
	uploadsDone   prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		passesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_passes_started_total",
			Help: "Total processing passes started.",
		}),
		passesDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_passes_completed_total",
			Help: "Total processing passes completed.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harvester_pass_duration_seconds",
			Help:    "Wall time per completed pass.",
			Buckets: []float64{30, 60, 300, 600, 1200, 1800, 3600, 7200},
		}),
		actasDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_actas_processed_total",
			Help: "Acta outcomes partitioned by variant and status.",
		}, []string{"variant", "status"}),
		filesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_files_fetched_total",
			Help: "Tally-sheet files fetched, partitioned by variant.",
		}, []string{"variant"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_fetch_bytes_total",
			Help: "Bytes downloaded per variant.",
		}, []string{"variant"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_fetch_duration_seconds",
			Help:    "File fetch duration per variant.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"variant"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_upload_bytes_total",
			Help: "Bytes uploaded to object storage.",
		}),
		uploadsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_uploads_completed_total",
			Help: "Actas whose files were fully uploaded.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.passesStarted,
		s.passesDone,
		s.passDuration,
		s.actasDone,
		s.filesFetched,
		s.fetchBytes,
		s.fetchDuration,
		s.uploadBytes,
		s.uploadsDone,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	variant := evt.Variant
	if variant == "" {
		variant = "unknown"
	}
	switch evt.Stage {
	case progress.StagePassStart:
		s.passesStarted.Inc()
	case progress.StagePassDone:
		s.passesDone.Inc()
		if evt.Dur > 0 {
			s.passDuration.Observe(evt.Dur.Seconds())
		}
	case progress.StageActaDone:
		s.actasDone.WithLabelValues(variant, evt.Status).Inc()
	case progress.StageFileFetch:
		s.filesFetched.WithLabelValues(variant).Inc()
		if evt.Bytes > 0 {
			s.fetchBytes.WithLabelValues(variant).Add(float64(evt.Bytes))
		}
		if evt.Dur > 0 {
			s.fetchDuration.WithLabelValues(variant).Observe(evt.Dur.Seconds())
		}
	case progress.StageUploadByte:
		if evt.Bytes > 0 {
			s.uploadBytes.Add(float64(evt.Bytes))
		}
	case progress.StageUploadDone:
		s.uploadsDone.Inc()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
