package gosom

import (
	"context"
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/gosom/lattice"
)

// Model is the result of a successful fit: the codebook, the training
// assignments and the derived distance structure. A model is immutable and
// safe for concurrent readers.
//
// Models are produced by SOM.Fit or restored by LoadModel. The zero value is
// not fitted: Predict, Assign, ComponentPlane and the snapshot operations
// return ErrNotFitted on it, and UMatrix returns nil.
type Model struct {
	grid       *lattice.Grid
	weights    *mat.Dense
	bmus       []int
	dmat       *mat.SymDense
	inertia    float64
	degenerate *roaring.Bitmap

	metrics MetricsCollector
	logger  *Logger
}

// Grid returns the lattice geometry of the map.
func (m *Model) Grid() *lattice.Grid { return m.grid }

// Rows returns the number of neuron rows.
func (m *Model) Rows() int { return m.grid.Rows() }

// Cols returns the number of neuron columns.
func (m *Model) Cols() int { return m.grid.Cols() }

// Neurons returns the total number of neurons.
func (m *Model) Neurons() int { return m.grid.Neurons() }

// Features returns the feature dimensionality of the codebook.
func (m *Model) Features() int {
	_, f := m.weights.Dims()
	return f
}

// Weights returns the neurons×features codebook. Row i holds the weight
// vector of neuron i. The matrix is shared and must not be modified.
func (m *Model) Weights() *mat.Dense { return m.weights }

// BMUs returns the best matching unit of each training sample, in training
// set order. The slice is shared and must not be modified.
func (m *Model) BMUs() []int { return m.bmus }

// Distances returns the pairwise feature-space distances between neuron
// weight vectors. Entries involving degenerate neurons are NaN. The matrix
// is shared and must not be modified.
func (m *Model) Distances() *mat.SymDense { return m.dmat }

// Inertia returns the sum of squared distances between every training
// sample and its best matching unit. NaN when any sample maps to a
// degenerate neuron.
func (m *Model) Inertia() float64 { return m.inertia }

// Predict returns the best matching units computed for the training set at
// fit time. The argument is accepted for signature compatibility with
// Assign but is ignored; use Assign to evaluate new data.
func (m *Model) Predict(_ mat.Matrix) ([]int, error) {
	if !m.fitted() {
		return nil, ErrNotFitted
	}
	return m.bmus, nil
}

// Assign computes the best matching unit of each row of x against the
// trained codebook. Rows of x are samples with the same feature
// dimensionality the model was trained on; x is not modified.
func (m *Model) Assign(x mat.Matrix) ([]int, error) {
	start := time.Now()

	bmus, err := m.assign(x)

	duration := time.Since(start)
	if m.metrics != nil {
		m.metrics.RecordAssign(duration, err)
	}
	if m.logger != nil {
		m.logger.LogAssign(context.Background(), len(bmus), err)
	}

	return bmus, err
}

func (m *Model) assign(x mat.Matrix) ([]int, error) {
	if !m.fitted() {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, ErrEmptyTrainingSet
	}

	n, f := x.Dims()
	if f != m.Features() {
		return nil, &ErrDimensionMismatch{Expected: m.Features(), Actual: f}
	}

	data := mat.DenseCopyOf(x)
	bmus := make([]int, n)
	assignBMUs(bmus, data, m.weights)

	return bmus, nil
}

// UMatrix returns the unified distance matrix as a (2·rows−1)×(2·cols−1)
// data grid ready for rendering. The cell at (2r, 2c) holds neuron (r,c)'s
// mean feature-space distance to its lattice neighbours, NaN when no
// neighbour distance is finite; the cell between two adjacent neurons holds
// their pairwise distance. Cells adjacent only to NaN distances keep their
// zero value. Returns nil for an unfitted model.
func (m *Model) UMatrix() *mat.Dense {
	if !m.fitted() {
		return nil
	}

	rows, cols := m.grid.Rows(), m.grid.Cols()
	k := m.grid.Neurons()
	umat := mat.NewDense(2*rows-1, 2*cols-1, nil)

	for i := 0; i < k; i++ {
		row, col := m.grid.Coord(i)

		// Neighbours are the neurons within squared lattice distance 2:
		// the 4-connected sides plus the diagonals.
		var sum float64
		var finite int
		for j := 0; j < k; j++ {
			d2 := m.grid.SquaredDistance(i, j)
			if d2 <= 0 || d2 > 2 {
				continue
			}
			d := m.dmat.At(i, j)
			if math.IsNaN(d) {
				continue
			}
			sum += d
			finite++

			nrow, ncol := m.grid.Coord(j)
			umat.Set(row+nrow, col+ncol, d)
		}

		if finite > 0 {
			umat.Set(2*row, 2*col, sum/float64(finite))
		} else {
			umat.Set(2*row, 2*col, math.NaN())
		}
	}

	return umat
}

// ComponentPlane returns the rows×cols slice of the codebook along a single
// feature dimension, ready for rendering as a heat map.
func (m *Model) ComponentPlane(feature int) (*mat.Dense, error) {
	if !m.fitted() {
		return nil, ErrNotFitted
	}
	if feature < 0 || feature >= m.Features() {
		return nil, &ErrDimensionMismatch{Expected: m.Features(), Actual: feature}
	}

	rows, cols := m.grid.Rows(), m.grid.Cols()
	plane := mat.NewDense(rows, cols, nil)
	for i := 0; i < m.grid.Neurons(); i++ {
		r, c := m.grid.Coord(i)
		plane.Set(r, c, m.weights.At(i, feature))
	}

	return plane, nil
}

// DegenerateNeurons returns the indices of neurons whose final weight rows
// are NaN because no sample contributed kernel weight to them. Nil when the
// map has none.
func (m *Model) DegenerateNeurons() []int {
	if m.degenerate == nil || m.degenerate.IsEmpty() {
		return nil
	}

	out := make([]int, 0, m.degenerate.GetCardinality())
	it := m.degenerate.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// IsDegenerate reports whether the neuron's final weight row is NaN.
func (m *Model) IsDegenerate(neuron int) bool {
	return m.degenerate != nil && m.degenerate.Contains(uint32(neuron))
}

func (m *Model) fitted() bool {
	return m != nil && m.weights != nil
}
