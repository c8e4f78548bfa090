package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RenderMetrics содержит метрики пайплайна fan-out и рендеринга чеков.
type RenderMetrics struct {
	// Счётчики fan-out
	fanoutOrders prometheus.Counter
	fanoutChecks prometheus.Counter

	// Счётчик попыток рендеринга по результату:
	// rendered / skipped / retried / permanent_failure.
	renderAttempts *prometheus.CounterVec

	// Гистограммы времени выполнения
	convertDuration prometheus.Histogram
	jobDuration     prometheus.Histogram

	// Gauge активных render-заданий
	activeJobs prometheus.Gauge
}

// NewRenderMetrics создаёт новый экземпляр метрик рендеринга.
func NewRenderMetrics() *RenderMetrics {
	return newRenderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newRenderMetricsWithRegisterer(registerer prometheus.Registerer) *RenderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &RenderMetrics{
		fanoutOrders: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checks_fanout_orders_total",
			Help: "Total number of orders fanned out into checks",
		}),
		fanoutChecks: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checks_fanout_checks_total",
			Help: "Total number of checks created by fan-out",
		}),
		renderAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checks_render_attempts_total",
			Help: "Total number of check render attempts grouped by result",
		}, []string{"result"}),
		convertDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checks_convert_duration_seconds",
			Help:    "Duration of HTML to PDF conversion calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		jobDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checks_render_job_duration_seconds",
			Help:    "Duration of whole render jobs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		activeJobs: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "checks_render_jobs_active",
			Help: "Number of render jobs currently being processed",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordFanout фиксирует один fan-out: заказ и количество созданных чеков.
func (m *RenderMetrics) RecordFanout(checks int) {
	m.fanoutOrders.Inc()
	m.fanoutChecks.Add(float64(checks))
}

// RecordRenderResult увеличивает счётчик попыток рендеринга с данным результатом.
func (m *RenderMetrics) RecordRenderResult(result string) {
	m.renderAttempts.WithLabelValues(result).Inc()
}

// RecordConvertDuration записывает время одного вызова конвертации.
func (m *RenderMetrics) RecordConvertDuration(duration time.Duration) {
	m.convertDuration.Observe(duration.Seconds())
}

// RecordJobDuration записывает время выполнения всего render-задания.
func (m *RenderMetrics) RecordJobDuration(duration time.Duration) {
	m.jobDuration.Observe(duration.Seconds())
}

// RecordJobStarted увеличивает количество активных заданий.
func (m *RenderMetrics) RecordJobStarted() {
	m.activeJobs.Inc()
}

// RecordJobFinished уменьшает количество активных заданий.
func (m *RenderMetrics) RecordJobFinished() {
	m.activeJobs.Dec()
}
