// Package prometheus exports entitynet metrics to Prometheus.
//
//	c, err := prometheus.New(prometheus.DefaultRegisterer, "entitynet")
//	s, err := entitynet.New(a, b, entitynet.WithMetricsCollector(c))
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRegisterer is the global Prometheus registerer.
var DefaultRegisterer = prometheus.DefaultRegisterer

// Collector records comparison, search, network and export metrics.
type Collector struct {
	compares       *prometheus.CounterVec
	compareLatency *prometheus.HistogramVec
	occurrences    *prometheus.CounterVec
	relatedRows    *prometheus.CounterVec
	saturated      *prometheus.CounterVec

	searches      *prometheus.CounterVec
	searchLatency prometheus.Histogram
	searchQueries prometheus.Counter

	networks       *prometheus.CounterVec
	networkLatency prometheus.Histogram
	networkNodes   prometheus.Gauge
	networkCount   prometheus.Gauge

	exports       *prometheus.CounterVec
	exportLatency prometheus.Histogram
	exportBytes   prometheus.Counter
}

// New creates a collector and registers its metrics with reg.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		compares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compares_total",
			Help:      "Category comparisons by outcome.",
		}, []string{"category", "status"}),
		compareLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compare_duration_seconds",
			Help:      "Latency of category comparisons.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		occurrences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "occurrences_total",
			Help:      "Normalised values compared.",
		}, []string{"category"}),
		relatedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "related_rows_total",
			Help:      "Rows of category relations returned.",
		}, []string{"category"}),
		saturated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saturated_queries_total",
			Help:      "Similarity queries whose last candidate still met the threshold.",
		}, []string{"category"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Nearest-neighbor searches by outcome.",
		}, []string{"status"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Latency of nearest-neighbor searches.",
			Buckets:   prometheus.DefBuckets,
		}),
		searchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Query vectors searched.",
		}),
		networks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "networks_total",
			Help:      "Network resolutions by outcome.",
		}, []string{"status"}),
		networkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "network_duration_seconds",
			Help:      "Latency of network resolution.",
			Buckets:   prometheus.DefBuckets,
		}),
		networkNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_nodes",
			Help:      "Related nodes of the last resolved network.",
		}),
		networkCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_count",
			Help:      "Networks of the last resolution.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Blob exports by outcome.",
		}, []string{"status"}),
		exportLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Latency of blob exports.",
			Buckets:   prometheus.DefBuckets,
		}),
		exportBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes written by exports.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.compares, c.compareLatency, c.occurrences, c.relatedRows, c.saturated,
		c.searches, c.searchLatency, c.searchQueries,
		c.networks, c.networkLatency, c.networkNodes, c.networkCount,
		c.exports, c.exportLatency, c.exportBytes,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) RecordCompare(category string, occurrences, rows int, d time.Duration, err error) {
	c.compares.WithLabelValues(category, status(err)).Inc()
	c.compareLatency.WithLabelValues(category).Observe(d.Seconds())
	if err != nil {
		return
	}
	c.occurrences.WithLabelValues(category).Add(float64(occurrences))
	c.relatedRows.WithLabelValues(category).Add(float64(rows))
}

func (c *Collector) RecordSearch(queries, _ int, d time.Duration, err error) {
	c.searches.WithLabelValues(status(err)).Inc()
	c.searchLatency.Observe(d.Seconds())
	c.searchQueries.Add(float64(queries))
}

func (c *Collector) RecordSaturation(category string, queries int) {
	c.saturated.WithLabelValues(category).Add(float64(queries))
}

func (c *Collector) RecordNetwork(nodes, networks int, d time.Duration, err error) {
	c.networks.WithLabelValues(status(err)).Inc()
	c.networkLatency.Observe(d.Seconds())
	if err != nil {
		return
	}
	c.networkNodes.Set(float64(nodes))
	c.networkCount.Set(float64(networks))
}

func (c *Collector) RecordExport(bytes int64, d time.Duration, err error) {
	c.exports.WithLabelValues(status(err)).Inc()
	c.exportLatency.Observe(d.Seconds())
	c.exportBytes.Add(float64(bytes))
}
