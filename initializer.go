package gosom

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/gosom/lattice"
)

// Initializer represents the weight initialization method used at the start
// of a fit.
type Initializer int

// Constants representing the supported initializers.
const (
	// InitializerPCA lays the initial weights out along the first two
	// principal components of the training data, plus residual-variance
	// noise. This seeds the map close to the data manifold and speeds up
	// convergence.
	InitializerPCA Initializer = iota

	// InitializerRandom draws every weight entry uniformly from [0, 1).
	InitializerRandom
)

// String returns a string representation of the Initializer.
func (i Initializer) String() string {
	switch i {
	case InitializerPCA:
		return "pca"
	case InitializerRandom:
		return "random"
	default:
		return "unknown"
	}
}

// Valid reports whether i names a supported initializer.
func (i Initializer) Valid() bool {
	switch i {
	case InitializerPCA, InitializerRandom:
		return true
	default:
		return false
	}
}

// initialWeights produces the k×f starting weight matrix for a fit.
func initialWeights(initializer Initializer, grid *lattice.Grid, x *mat.Dense, rng *rand.Rand) (*mat.Dense, error) {
	switch initializer {
	case InitializerRandom:
		return randomWeights(grid.Neurons(), featureDim(x), rng), nil
	case InitializerPCA:
		return pcaWeights(grid, x, rng)
	default:
		return nil, &ErrInvalidInitializer{Initializer: initializer}
	}
}

// randomWeights fills the weight matrix uniformly in [0, 1), row by row.
func randomWeights(k, f int, rng *rand.Rand) *mat.Dense {
	w := mat.NewDense(k, f, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < f; j++ {
			w.Set(i, j, rng.Float64())
		}
	}
	return w
}

// pcaWeights spans the lattice rows along the first principal component of x
// and the lattice columns along the second, adds zero-mean Gaussian noise
// with the residual variance of the remaining components, and re-centers on
// the feature means.
func pcaWeights(grid *lattice.Grid, x *mat.Dense, rng *rand.Rand) (*mat.Dense, error) {
	n, f := x.Dims()
	if f < 2 {
		return nil, ErrInsufficientFeatures
	}

	means := make([]float64, f)
	for j := 0; j < f; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	centered := mat.NewDense(n, f, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < f; j++ {
			centered.Set(i, j, x.At(i, j)-means[j])
		}
	}

	// Population covariance: divide by n, not n-1.
	var prod mat.Dense
	prod.Mul(centered.T(), centered)
	cov := mat.NewSymDense(f, nil)
	for i := 0; i < f; i++ {
		for j := i; j < f; j++ {
			cov.SetSym(i, j, prod.At(i, j)/float64(n))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return nil, ErrEigenDecomposition
	}
	vals := eig.Values(nil) // ascending order
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Residual variance beyond the first two components. Roundoff can push
	// the sum of near-zero eigenvalues slightly negative; clamp before the
	// square root.
	var resid float64
	for _, v := range vals[:f-2] {
		resid += v
	}
	if resid < 0 {
		resid = 0
	}
	std := math.Sqrt(resid)

	rows, cols := grid.Rows(), grid.Cols()
	rowFacs := span(-vals[f-1], vals[f-1], rows)
	colFacs := span(-vals[f-2], vals[f-2], cols)

	w := mat.NewDense(grid.Neurons(), f, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := grid.Index(r, c)
			for j := 0; j < f; j++ {
				w.Set(i, j, rowFacs[r]*vecs.At(j, f-1)+colFacs[c]*vecs.At(j, f-2)+std*rng.NormFloat64()+means[j])
			}
		}
	}

	return w, nil
}

// span returns n values linearly spaced from lo to hi inclusive. A single
// value is lo, matching the radius schedule convention.
func span(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func featureDim(x mat.Matrix) int {
	_, f := x.Dims()
	return f
}
