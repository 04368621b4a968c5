package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eulergen"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	fetchDuration *prom.HistogramVec
	pages         *prom.CounterVec
	emits         *prom.CounterVec
	batchDuration prom.Histogram
	lastGenerated prom.Gauge
	runOutcomes   *prom.CounterVec
}

// NewPrometheusRecorder constructs the generator metrics and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of problem page fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		pages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Fetched pages by classification",
		}, []string{"class"}),
		emits: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished generation jobs by status",
		}, []string{"status"}),
		batchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one batch from submission to join",
			Buckets:   prom.ExponentialBuckets(0.5, 2, 10),
		}),
		lastGenerated: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_generated",
			Help:      "Highest problem identifier generated by the current run",
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Generation runs by final outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.fetchDuration, pr.pages, pr.emits, pr.batchDuration, pr.lastGenerated, pr.runOutcomes)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) ObserveFetchDuration(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.fetchDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPage(class string) {
	if p == nil {
		return
	}
	p.pages.WithLabelValues(class).Inc()
}

func (p *PrometheusRecorder) IncEmit(status string) {
	if p == nil {
		return
	}
	p.emits.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveBatchDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.batchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetLastGenerated(id int) {
	if p == nil {
		return
	}
	p.lastGenerated.Set(float64(id))
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(outcome).Inc()
}
