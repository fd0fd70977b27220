package gosom

import (
	"log/slog"
	"math"
	"time"

	"github.com/hupe1980/gosom/kernel"
)

type options struct {
	neighbourhood    kernel.Family
	epochs           int
	rmax             float64 // NaN means "use the lattice diagonal"
	initializer      Initializer
	seed             int64
	h0Rmax           float64 // accepted, not consumed by the schedule
	hNR1             float64 // accepted, not consumed by the schedule
	logger           *Logger
	metricsCollector MetricsCollector
	progressFn       ProgressFunc
	progressInterval time.Duration
}

// Option configures SOM constructor behavior.
type Option func(*options)

// WithNeighbourhood configures the neighbourhood function family applied
// around each best matching unit during weight updates.
// Defaults to kernel.Gaussian.
func WithNeighbourhood(family kernel.Family) Option {
	return func(o *options) {
		o.neighbourhood = family
	}
}

// WithEpochs configures the number of training epochs. Defaults to 10.
func WithEpochs(epochs int) Option {
	return func(o *options) {
		o.epochs = epochs
	}
}

// WithRmax configures the neighbourhood radius of the first epoch. The
// radius schedule descends linearly from this value to 0.5 at the last
// epoch. Defaults to the lattice diagonal sqrt((rows-1)² + (cols-1)²).
func WithRmax(rmax float64) Option {
	return func(o *options) {
		o.rmax = rmax
	}
}

// WithInitializer configures the weight initialization method.
// Defaults to InitializerPCA.
func WithInitializer(initializer Initializer) Option {
	return func(o *options) {
		o.initializer = initializer
	}
}

// WithSeed configures the seed of the random source used by weight
// initialization, making repeated fits reproducible. Defaults to the
// current time.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithInitialKernelWeight sets the target kernel weight at radius Rmax for
// the first epoch. The value is stored for interface compatibility but does
// not currently parameterize the radius schedule, which remains the linear
// descent from Rmax to 0.5. Defaults to 0.5.
func WithInitialKernelWeight(h0 float64) Option {
	return func(o *options) {
		o.h0Rmax = h0
	}
}

// WithFinalKernelWeight sets the target kernel weight at unit radius for the
// last epoch. The value is stored for interface compatibility but does not
// currently parameterize the radius schedule. Defaults to 0.01.
func WithFinalKernelWeight(hN float64) Option {
	return func(o *options) {
		o.hNR1 = hN
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := gosom.NewJSONLogger(slog.LevelInfo)
//	som, _ := gosom.New(8, 8, gosom.WithLogger(logger))
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

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &gosom.BasicMetricsCollector{}
//	som, _ := gosom.New(8, 8, gosom.WithMetricsCollector(metrics))
//	// ... fit ...
//	stats := metrics.GetStats()
//	fmt.Printf("Epochs: %d, Avg latency: %dns\n", stats.EpochCount, stats.EpochAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithProgress configures a best-effort progress callback invoked once per
// training epoch. The callback is never required for correctness and must
// not block.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progressFn = fn
	}
}

// WithProgressInterval configures the minimum interval between progress
// callbacks. The first and last epoch are always delivered. Defaults to
// 100ms; zero disables throttling.
func WithProgressInterval(interval time.Duration) Option {
	return func(o *options) {
		o.progressInterval = interval
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		neighbourhood:    kernel.Gaussian,
		epochs:           10,
		rmax:             math.NaN(),
		initializer:      InitializerPCA,
		seed:             time.Now().UnixNano(),
		h0Rmax:           0.5,
		hNR1:             0.01,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		progressInterval: 100 * time.Millisecond,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
