package vecscan

import (
	"log/slog"

	"github.com/hupe1980/vecscan/accel"
	"github.com/hupe1980/vecscan/codec"
	"github.com/hupe1980/vecscan/embedding"
)

type options struct {
	codec            codec.Codec
	embedder         embedding.Provider
	kernel           *accel.Kernel
	parallelism      int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Store.
type Option func(*options)

// WithCodec configures the codec records are encoded with.
//
// The codec is part of the persisted format; reopen a store with the codec it
// was written with. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithEmbedder configures the provider used to embed Record.Text and query
// text. Pass an *embedding.Lazy to defer provider initialisation to first use.
func WithEmbedder(p embedding.Provider) Option {
	return func(o *options) {
		o.embedder = p
	}
}

// WithAccelerator configures a loaded acceleration module for Hamming
// queries. Queries fall back to the scalar path when the kernel reports
// accel.ErrUnavailable.
//
// Example:
//
//	k, err := accel.Load(accel.BuiltinName)
//	if err == nil {
//	    opts = append(opts, vecscan.WithAccelerator(k))
//	}
func WithAccelerator(k *accel.Kernel) Option {
	return func(o *options) {
		o.kernel = k
	}
}

// WithParallelism fans dense scoring out over n goroutines.
// Results are identical to sequential scoring. n <= 1 scores sequentially.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecscan.BasicMetricsCollector{}
//	s, _ := vecscan.New(b, cfg, vecscan.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		parallelism:      1,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
