// Package metrics counts API traffic, fetched posts, comment loads and
// archive entries, and writes them in the Prometheus text format for the
// node_exporter textfile collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"redditscraper/internal/downloader"
	"redditscraper/pkg/comments"
)

const namespace = "redditscraper"

// Metrics owns a private registry so several instances can coexist
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	postsFetched    prometheus.Counter
	fetchPages      prometheus.Counter
	commentThreads  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	archiveEntries  *prometheus.CounterVec
	archiveBytes    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests sent to Reddit, by kind and status.",
		}, []string{"kind", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests to Reddit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		postsFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_fetched_total",
			Help:      "Posts returned by listing and search fetches.",
		}),
		fetchPages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_pages_total",
			Help:      "Pages requested by fetches.",
		}),
		commentThreads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comment_threads_total",
			Help:      "Settled comment loads, by final state.",
		}, []string{"state"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_cache_lookups_total",
			Help:      "Media descriptor cache lookups, by result.",
		}, []string{"result"}),
		archiveEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_entries_total",
			Help:      "Media archive jobs, by result.",
		}, []string{"result"}),
		archiveBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_bytes_total",
			Help:      "Bytes of media written to archives.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest implements reddit.RequestObserver
func (m *Metrics) ObserveRequest(kind string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// FetchCompleted records a successful fetch
func (m *Metrics) FetchCompleted(posts, pages int) {
	m.postsFetched.Add(float64(posts))
	m.fetchPages.Add(float64(pages))
}

func (m *Metrics) CommentsSettled(s comments.State) {
	m.commentThreads.WithLabelValues(s.String()).Inc()
}

// CacheLookup is suitable for media.Cache.OnLookup
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ArchiveObserver counts archive entries as they settle
func (m *Metrics) ArchiveObserver() downloader.Observer {
	return archiveObserver{m}
}

type archiveObserver struct{ m *Metrics }

func (archiveObserver) Begin(int) {}

func (o archiveObserver) Settled(r downloader.Result) {
	if r.Success {
		o.m.archiveEntries.WithLabelValues("success").Inc()
		o.m.archiveBytes.Add(float64(r.Size))
		return
	}
	o.m.archiveEntries.WithLabelValues("failure").Inc()
}

func (archiveObserver) Done(downloader.Report) {}

// WriteTextfile writes every metric to path atomically
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
