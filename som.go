package gosom

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/gosom/kernel"
	"github.com/hupe1980/gosom/lattice"
)

// SOM is a batch trainer for a self-organizing map on a rectangular lattice.
// A trainer is cheap to construct and owns no mutable state between fits;
// every Fit call produces an independent Model.
type SOM struct {
	grid *lattice.Grid
	opts options
}

// New creates a batch SOM trainer for a rows×cols lattice. Configuration
// errors are reported here, before any training state exists.
func New(rows, cols int, optFns ...Option) (*SOM, error) {
	o := applyOptions(optFns)

	grid, err := lattice.New(rows, cols)
	if err != nil {
		return nil, err
	}

	if o.epochs <= 0 {
		return nil, ErrInvalidEpochs
	}

	if !o.neighbourhood.Valid() {
		return nil, &kernel.ErrInvalidFamily{Family: o.neighbourhood}
	}

	if !o.initializer.Valid() {
		return nil, &ErrInvalidInitializer{Initializer: o.initializer}
	}

	return &SOM{grid: grid, opts: o}, nil
}

// Grid returns the lattice geometry of the map.
func (s *SOM) Grid() *lattice.Grid { return s.grid }

// Rows returns the number of neuron rows.
func (s *SOM) Rows() int { return s.grid.Rows() }

// Cols returns the number of neuron columns.
func (s *SOM) Cols() int { return s.grid.Cols() }

// Seed returns the seed of the random source used by weight initialization.
func (s *SOM) Seed() int64 { return s.opts.seed }

// Fit trains the map on x using the batch algorithm and returns the trained
// model. Rows of x are samples, columns are features; x is not modified.
//
// Training runs synchronously in the calling goroutine. Cancellation of ctx
// is observed between epochs and aborts the fit without a partial model.
func (s *SOM) Fit(ctx context.Context, x mat.Matrix) (*Model, error) {
	start := time.Now()

	model, err := s.fit(ctx, x)

	duration := time.Since(start)
	s.opts.metricsCollector.RecordFit(duration, err)

	var samples, features int
	if x != nil {
		samples, features = x.Dims()
	}
	var inertia float64
	if model != nil {
		inertia = model.inertia
	}
	s.opts.logger.LogFit(ctx, samples, features, inertia, err)

	return model, err
}

func (s *SOM) fit(ctx context.Context, x mat.Matrix) (*Model, error) {
	if x == nil {
		return nil, ErrEmptyTrainingSet
	}
	m, f := x.Dims()
	if m == 0 || f == 0 {
		return nil, ErrEmptyTrainingSet
	}

	data := mat.DenseCopyOf(x)

	rng := rand.New(rand.NewSource(s.opts.seed))
	w, err := initialWeights(s.opts.initializer, s.grid, data, rng)
	if err != nil {
		return nil, err
	}

	rmax := s.opts.rmax
	if math.IsNaN(rmax) {
		rmax = s.grid.MaxRadius()
	}
	sigs := kernel.Schedule(rmax, s.opts.epochs)
	kernels, err := kernel.Generate(s.opts.neighbourhood, s.grid.SquaredDistances(), sigs)
	if err != nil {
		return nil, err
	}

	k := s.grid.Neurons()
	bmus := make([]int, m)
	sums := make([]float64, k*f)
	denoms := make([]float64, k)
	notifier := newProgressNotifier(s.opts.progressFn, s.opts.progressInterval, s.opts.epochs)

	for epoch := 0; epoch < s.opts.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		epochStart := time.Now()

		// Assignment step
		assignBMUs(bmus, data, w)

		// Update step: each neuron becomes the kernel-weighted centroid of
		// all samples, every sample contributing through the kernel row of
		// its BMU.
		for i := range sums {
			sums[i] = 0
		}
		for j := range denoms {
			denoms[j] = 0
		}

		kern := kernels[epoch]
		for i := 0; i < m; i++ {
			xi := data.RawRowView(i)
			krow := kern.RawRowView(bmus[i])
			for j, kw := range krow {
				if kw == 0 {
					continue
				}
				denoms[j] += kw
				row := sums[j*f : (j+1)*f]
				for d, v := range xi {
					row[d] += kw * v
				}
			}
		}

		for j := 0; j < k; j++ {
			denom := denoms[j]
			if denom == 0 {
				s.opts.logger.LogDegenerateNeuron(ctx, epoch, j)
			}
			// A zero denominator turns the row NaN (0/0). This is kept
			// detectable rather than clamped; see Model.DegenerateNeurons.
			wrow := w.RawRowView(j)
			for d, v := range sums[j*f : (j+1)*f] {
				wrow[d] = v / denom
			}
		}

		s.opts.metricsCollector.RecordEpoch(time.Since(epochStart))
		s.opts.logger.LogEpoch(ctx, epoch, s.opts.epochs)
		notifier.notify(epoch)
	}

	assignBMUs(bmus, data, w)

	var inertia float64
	for i := 0; i < m; i++ {
		inertia += squaredDistance(data.RawRowView(i), w.RawRowView(bmus[i]))
	}

	degenerate := degenerateRows(w)
	if n := degenerate.GetCardinality(); n > 0 {
		s.opts.metricsCollector.RecordDegenerateNeurons(int(n))
	}

	return &Model{
		grid:       s.grid,
		weights:    w,
		bmus:       bmus,
		dmat:       weightDistances(w),
		inertia:    inertia,
		degenerate: degenerate,
		metrics:    s.opts.metricsCollector,
		logger:     s.opts.logger,
	}, nil
}

// assignBMUs writes the index of the nearest weight row (squared Euclidean)
// for each sample of x into dst. Ties go to the lowest index, and NaN
// distances never win, so degenerate neurons do not attract samples.
func assignBMUs(dst []int, x, w *mat.Dense) {
	m, _ := x.Dims()
	k, _ := w.Dims()

	for i := 0; i < m; i++ {
		xi := x.RawRowView(i)

		best := 0
		bestDist := math.Inf(1)
		for j := 0; j < k; j++ {
			if d := squaredDistance(xi, w.RawRowView(j)); d < bestDist {
				best = j
				bestDist = d
			}
		}

		dst[i] = best
	}
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i, v := range a {
		d := v - b[i]
		sum += d * d
	}
	return sum
}

// weightDistances computes the pairwise Euclidean distances between weight
// rows in feature space. Degenerate rows contaminate their entries with NaN
// per IEEE semantics, including the diagonal.
func weightDistances(w *mat.Dense) *mat.SymDense {
	k, _ := w.Dims()
	dmat := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		wi := w.RawRowView(i)
		dmat.SetSym(i, i, floats.Distance(wi, wi, 2))
		for j := i + 1; j < k; j++ {
			dmat.SetSym(i, j, floats.Distance(wi, w.RawRowView(j), 2))
		}
	}
	return dmat
}

// degenerateRows collects the indices of weight rows containing NaN.
func degenerateRows(w *mat.Dense) *roaring.Bitmap {
	rb := roaring.New()
	k, _ := w.Dims()
	for i := 0; i < k; i++ {
		for _, v := range w.RawRowView(i) {
			if math.IsNaN(v) {
				rb.Add(uint32(i))
				break
			}
		}
	}
	return rb
}
