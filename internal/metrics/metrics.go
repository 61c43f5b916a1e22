package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "superpos"

// Recorder owns a private registry so several instances can coexist in tests.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	postedTotal     *prometheus.CounterVec
	postFailures    *prometheus.CounterVec
	salesAmount     *prometheus.CounterVec
	postDuration    prometheus.Histogram
	httpDuration    *prometheus.HistogramVec
	reportCacheHits *prometheus.CounterVec
}

func New(env string) *Recorder {
	labels := prometheus.Labels{"env": env}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		postedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "transactions",
			Name:        "posted_total",
			Help:        "Sales transactions committed, by payment method.",
			ConstLabels: labels,
		}, []string{"payment_method"}),
		postFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "transactions",
			Name:        "failed_total",
			Help:        "Sales postings rejected or rolled back, by error kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		salesAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "transactions",
			Name:        "sales_amount_total",
			Help:        "Sum of committed total_amount, by payment method.",
			ConstLabels: labels,
		}, []string{"payment_method"}),
		postDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "transactions",
			Name:        "post_duration_seconds",
			Help:        "Wall time of one posting unit of work.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency by route pattern and status class.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		reportCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "reports",
			Name:        "cache_lookups_total",
			Help:        "Report cache lookups by report and result.",
			ConstLabels: labels,
		}, []string{"report", "result"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.postedTotal, r.postFailures, r.salesAmount, r.postDuration, r.httpDuration, r.reportCacheHits,
	)
	return r
}

func (r *Recorder) TransactionPosted(paymentMethod string, total decimal.Decimal, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.postedTotal.WithLabelValues(paymentMethod).Inc()
	r.salesAmount.WithLabelValues(paymentMethod).Add(total.InexactFloat64())
	r.postDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) TransactionFailed(kind string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.postFailures.WithLabelValues(kind).Inc()
	r.postDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) ReportCacheLookup(report string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.reportCacheHits.WithLabelValues(report, result).Inc()
}

func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpDuration.WithLabelValues(method, route, statusClass(status)).Observe(elapsed.Seconds())
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
