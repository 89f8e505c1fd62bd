package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mangas"

// Metrics holds the download collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	pagesFetched    *prometheus.CounterVec
	fetchRetries    *prometheus.CounterVec
	chapters        *prometheus.CounterVec
	imagesInFlight  prometheus.Gauge
	chapterDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of page fetches by result",
		}, []string{"result"}),
		fetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Total number of retried remote calls by operation",
		}, []string{"op"}),
		chapters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapters_total",
			Help:      "Total number of chapters that reached a terminal status",
		}, []string{"status"}),
		imagesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "image_fetches_in_flight",
			Help:      "Number of page fetches currently holding an image worker slot",
		}),
		chapterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chapter_duration_seconds",
			Help:      "Histogram of chapter task durations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms up to ~2 minutes
		}),
	}
	if reg != nil {
		reg.MustRegister(m.pagesFetched, m.fetchRetries, m.chapters, m.imagesInFlight, m.chapterDuration)
	}
	return m
}

func (m *Metrics) PageFetched(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.pagesFetched.WithLabelValues(result).Inc()
}

func (m *Metrics) Retry(op string) {
	if m == nil {
		return
	}
	m.fetchRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) ChapterFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.chapters.WithLabelValues(status).Inc()
	m.chapterDuration.Observe(d.Seconds())
}

// FetchStarted and FetchDone bracket a page fetch holding an image slot.
func (m *Metrics) FetchStarted() {
	if m == nil {
		return
	}
	m.imagesInFlight.Inc()
}

func (m *Metrics) FetchDone() {
	if m == nil {
		return
	}
	m.imagesInFlight.Dec()
}
