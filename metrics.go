package entitynet

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prometheus subpackage provides one implementation.
type MetricsCollector interface {
	// RecordCompare is called after each Compare.
	// occurrences is the number of normalised values, rows the number of
	// returned relation rows.
	RecordCompare(category string, occurrences, rows int, duration time.Duration, err error)

	// RecordSearch is called after each nearest-neighbor batch.
	RecordSearch(queries, k int, duration time.Duration, err error)

	// RecordSaturation is called when queries filled all k slots above the threshold.
	RecordSaturation(category string, queries int)

	// RecordNetwork is called after each Network.
	RecordNetwork(nodes, networks int, duration time.Duration, err error)

	// RecordExport is called after each Export with the bytes written.
	RecordExport(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCompare(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordSaturation(string, int)                         {}
func (NoopMetricsCollector) RecordNetwork(int, int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordExport(int64, time.Duration, error)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CompareCount      atomic.Int64
	CompareErrors     atomic.Int64
	CompareRows       atomic.Int64
	CompareTotalNanos atomic.Int64
	SearchCount       atomic.Int64
	SearchQueries     atomic.Int64
	SearchErrors      atomic.Int64
	SearchTotalNanos  atomic.Int64
	SaturatedQueries  atomic.Int64
	NetworkCount      atomic.Int64
	NetworkErrors     atomic.Int64
	ExportCount       atomic.Int64
	ExportBytes       atomic.Int64
	ExportErrors      atomic.Int64
}

// RecordCompare implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompare(_ string, _, rows int, duration time.Duration, err error) {
	b.CompareCount.Add(1)
	b.CompareTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CompareErrors.Add(1)
		return
	}
	b.CompareRows.Add(int64(rows))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(queries, _ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchQueries.Add(int64(queries))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordSaturation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSaturation(_ string, queries int) {
	b.SaturatedQueries.Add(int64(queries))
}

// RecordNetwork implements MetricsCollector.
func (b *BasicMetricsCollector) RecordNetwork(_, _ int, _ time.Duration, err error) {
	b.NetworkCount.Add(1)
	if err != nil {
		b.NetworkErrors.Add(1)
	}
}

// RecordExport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExport(bytes int64, _ time.Duration, err error) {
	if err != nil {
		b.ExportErrors.Add(1)
		return
	}
	b.ExportCount.Add(1)
	b.ExportBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CompareCount:     b.CompareCount.Load(),
		CompareErrors:    b.CompareErrors.Load(),
		CompareRows:      b.CompareRows.Load(),
		CompareAvgNanos:  avg(b.CompareTotalNanos.Load(), b.CompareCount.Load()),
		SearchCount:      b.SearchCount.Load(),
		SearchQueries:    b.SearchQueries.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		SaturatedQueries: b.SaturatedQueries.Load(),
		NetworkCount:     b.NetworkCount.Load(),
		NetworkErrors:    b.NetworkErrors.Load(),
		ExportCount:      b.ExportCount.Load(),
		ExportBytes:      b.ExportBytes.Load(),
		ExportErrors:     b.ExportErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CompareCount     int64
	CompareErrors    int64
	CompareRows      int64
	CompareAvgNanos  int64
	SearchCount      int64
	SearchQueries    int64
	SearchErrors     int64
	SearchAvgNanos   int64
	SaturatedQueries int64
	NetworkCount     int64
	NetworkErrors    int64
	ExportCount      int64
	ExportBytes      int64
	ExportErrors     int64
}
