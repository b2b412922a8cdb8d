package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docblog"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	phaseDuration *prom.HistogramVec
	buildDuration prom.Histogram
	phaseResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	documents     *prom.CounterVec
	posts         *prom.GaugeVec
	sourceSyncs   *prom.CounterVec
	notifications *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual build phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		phaseResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "phase_results_total",
			Help:      "Phase result counts by outcome",
		}, []string{"phase", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		documents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by phase",
		}, []string{"phase"}),
		posts: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "posts",
			Help:      "Posts known after the last build",
		}, []string{"state"}),
		sourceSyncs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "source_syncs_total",
			Help:      "Git source synchronisations by result",
		}, []string{"result"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Build notifications by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.phaseDuration, pr.buildDuration, pr.phaseResults, pr.buildOutcome,
		pr.documents, pr.posts, pr.sourceSyncs, pr.notifications)
	return pr
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil || p.phaseResults == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddDocuments(phase string, n int) {
	if p == nil || p.documents == nil || n <= 0 {
		return
	}
	p.documents.WithLabelValues(phase).Add(float64(n))
}

func (p *PrometheusRecorder) SetPosts(total, published int) {
	if p == nil || p.posts == nil {
		return
	}
	p.posts.WithLabelValues("total").Set(float64(total))
	p.posts.WithLabelValues("published").Set(float64(published))
}

func (p *PrometheusRecorder) IncSourceSync(success bool) {
	if p == nil || p.sourceSyncs == nil {
		return
	}
	p.sourceSyncs.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncNotification(success bool) {
	if p == nil || p.notifications == nil {
		return
	}
	p.notifications.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
