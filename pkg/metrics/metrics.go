// Package metrics exposes Prometheus instrumentation for the weight proof
// subsystem. A *Metrics value is optional everywhere it is threaded through:
// a nil receiver on every method is a safe no-op so callers that don't care
// about metrics can pass nil.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters, histograms, and gauges emitted while
// building and validating weight proofs.
type Metrics struct {
	ProofsBuilt        prometheus.Counter
	ProofsValidated    *prometheus.CounterVec
	BuildDuration      prometheus.Histogram
	ValidateDuration   prometheus.Histogram
	SegmentsBuilt      prometheus.Counter
	SegmentsValidated  *prometheus.CounterVec
	VDFVerifications   prometheus.Counter
	RecentChainLength  prometheus.Gauge
	SubEpochSummaries  prometheus.Gauge
	ForkPointLookups   prometheus.Counter
	WorkerPoolInFlight prometheus.Gauge
}

// New constructs a Metrics instance and registers its collectors with reg.
// Passing nil is not valid here; use a nil *Metrics pointer at call sites
// that want metrics disabled entirely.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		ProofsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "proofs_built_total",
			Help:      "Number of weight proofs assembled.",
		}),
		ProofsValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "proofs_validated_total",
			Help:      "Number of weight proofs validated, labeled by result.",
		}, []string{"result"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "build_duration_seconds",
			Help:      "Time spent assembling a weight proof.",
			Buckets:   prometheus.DefBuckets,
		}),
		ValidateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "validate_duration_seconds",
			Help:      "Time spent validating a weight proof.",
			Buckets:   prometheus.DefBuckets,
		}),
		SegmentsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "segments_built_total",
			Help:      "Number of sub-epoch challenge segments built.",
		}),
		SegmentsValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "segments_validated_total",
			Help:      "Number of sub-epoch challenge segments validated, labeled by result.",
		}, []string{"result"}),
		VDFVerifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "vdf_verifications_total",
			Help:      "Number of VDF proof verifications performed.",
		}),
		RecentChainLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "recent_chain_length",
			Help:      "Length of the recent chain included in the last built proof.",
		}),
		SubEpochSummaries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "sub_epoch_summaries",
			Help:      "Number of sub-epoch summaries included in the last built proof.",
		}),
		ForkPointLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "fork_point_lookups_total",
			Help:      "Number of fork-point resolutions performed.",
		}),
		WorkerPoolInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "weightproof",
			Name:      "worker_pool_in_flight",
			Help:      "Number of VDF verification tasks currently in flight.",
		}),
	}
	reg.MustRegister(
		m.ProofsBuilt, m.ProofsValidated, m.BuildDuration, m.ValidateDuration,
		m.SegmentsBuilt, m.SegmentsValidated, m.VDFVerifications,
		m.RecentChainLength, m.SubEpochSummaries, m.ForkPointLookups,
		m.WorkerPoolInFlight,
	)
	return m
}

func (m *Metrics) IncProofsBuilt() {
	if m == nil {
		return
	}
	m.ProofsBuilt.Inc()
}

func (m *Metrics) ObserveBuildDuration(seconds float64) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(seconds)
}

func (m *Metrics) ObserveValidateDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ValidateDuration.Observe(seconds)
}

func (m *Metrics) IncProofsValidated(result string) {
	if m == nil {
		return
	}
	m.ProofsValidated.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSegmentsBuilt(n int) {
	if m == nil {
		return
	}
	m.SegmentsBuilt.Add(float64(n))
}

func (m *Metrics) IncSegmentsValidated(result string, n int) {
	if m == nil {
		return
	}
	m.SegmentsValidated.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) IncVDFVerifications(n int) {
	if m == nil {
		return
	}
	m.VDFVerifications.Add(float64(n))
}

func (m *Metrics) SetRecentChainLength(n int) {
	if m == nil {
		return
	}
	m.RecentChainLength.Set(float64(n))
}

func (m *Metrics) SetSubEpochSummaries(n int) {
	if m == nil {
		return
	}
	m.SubEpochSummaries.Set(float64(n))
}

func (m *Metrics) IncForkPointLookups() {
	if m == nil {
		return
	}
	m.ForkPointLookups.Inc()
}

func (m *Metrics) SetWorkerPoolInFlight(n int) {
	if m == nil {
		return
	}
	m.WorkerPoolInFlight.Set(float64(n))
}
