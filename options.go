package entitynet

import (
	"log/slog"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/resource"
	"github.com/hupe1980/entitynet/similarity"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	registry         *category.Registry
	backend          similarity.Backend
	searchWorkers    int
	charMinN         int
	charMaxN         int
	maxConcurrent    int64
	ioLimit          int64
	keepScores       bool
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		registry:         category.NewRegistry(),
		charMinN:         1,
		charMaxN:         1,
		maxConcurrent:    1,
		keepScores:       true,
	}
}

// Option configures a Session.
type Option func(*options)

// WithLogger configures the logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger on stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &entitynet.BasicMetricsCollector{}
//	s, _ := entitynet.New(a, nil, entitynet.WithMetricsCollector(metrics))
//	// ... compare ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithRegistry replaces the category registry. The session keeps a copy, so
// later changes to r do not affect it.
func WithRegistry(r *category.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithBackend replaces the nearest-neighbor backend.
// The default is an exact inverted index.
func WithBackend(b similarity.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithSearchWorkers bounds the goroutines of the default backend.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithSearchWorkers(n int) Option {
	return func(o *options) {
		o.searchWorkers = n
	}
}

// WithCharNGramRange sets the n-gram lengths used by categories in char mode.
// The default is single characters.
func WithCharNGramRange(minN, maxN int) Option {
	return func(o *options) {
		o.charMinN = minN
		o.charMaxN = maxN
	}
}

// WithMaxConcurrentCompares bounds how many categories CompareAll runs at once.
func WithMaxConcurrentCompares(n int) Option {
	return func(o *options) {
		o.maxConcurrent = int64(n)
	}
}

// WithIOLimit bounds export throughput in bytes per second. 0 means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithoutScores drops the per-edge similarity diagnostics from comparison
// results, which saves memory on large inputs.
func WithoutScores() Option {
	return func(o *options) {
		o.keepScores = false
	}
}

func (o *options) controller() *resource.Controller {
	return resource.NewController(resource.Config{
		MaxConcurrentJobs:  o.maxConcurrent,
		IOLimitBytesPerSec: o.ioLimit,
	})
}
