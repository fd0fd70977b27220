package gosom

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    fitCounter   prometheus.Counter
//	    fitHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordFit(duration time.Duration, err error) {
//	    p.fitCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordFit is called after each fit operation.
	// duration is the total time taken, err is nil if successful.
	RecordFit(duration time.Duration, err error)

	// RecordEpoch is called after each training epoch.
	RecordEpoch(duration time.Duration)

	// RecordAssign is called after each best-matching-unit assignment.
	RecordAssign(duration time.Duration, err error)

	// RecordDegenerateNeurons is called at the end of a fit with the number
	// of neurons whose final weight rows are NaN.
	RecordDegenerateNeurons(count int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFit(time.Duration, error)    {}
func (NoopMetricsCollector) RecordEpoch(time.Duration)         {}
func (NoopMetricsCollector) RecordAssign(time.Duration, error) {}
func (NoopMetricsCollector) RecordDegenerateNeurons(int)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FitCount          atomic.Int64
	FitErrors         atomic.Int64
	FitTotalNanos     atomic.Int64
	EpochCount        atomic.Int64
	EpochTotalNanos   atomic.Int64
	AssignCount       atomic.Int64
	AssignErrors      atomic.Int64
	AssignTotalNanos  atomic.Int64
	DegenerateNeurons atomic.Int64
}

// RecordFit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFit(duration time.Duration, err error) {
	b.FitCount.Add(1)
	b.FitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FitErrors.Add(1)
	}
}

// RecordEpoch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEpoch(duration time.Duration) {
	b.EpochCount.Add(1)
	b.EpochTotalNanos.Add(duration.Nanoseconds())
}

// RecordAssign implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAssign(duration time.Duration, err error) {
	b.AssignCount.Add(1)
	b.AssignTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AssignErrors.Add(1)
	}
}

// RecordDegenerateNeurons implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDegenerateNeurons(count int) {
	b.DegenerateNeurons.Add(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FitCount:          b.FitCount.Load(),
		FitErrors:         b.FitErrors.Load(),
		FitAvgNanos:       b.getAvgFitNanos(),
		EpochCount:        b.EpochCount.Load(),
		EpochAvgNanos:     b.getAvgEpochNanos(),
		AssignCount:       b.AssignCount.Load(),
		AssignErrors:      b.AssignErrors.Load(),
		DegenerateNeurons: b.DegenerateNeurons.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFitNanos() int64 {
	count := b.FitCount.Load()
	if count == 0 {
		return 0
	}
	return b.FitTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgEpochNanos() int64 {
	count := b.EpochCount.Load()
	if count == 0 {
		return 0
	}
	return b.EpochTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FitCount          int64
	FitErrors         int64
	FitAvgNanos       int64
	EpochCount        int64
	EpochAvgNanos     int64
	AssignCount       int64
	AssignErrors      int64
	DegenerateNeurons int64
}
