// Package lattice provides the rectangular neuron grid geometry for
// self-organizing maps.
//
// A Grid is immutable once constructed. It caches the pairwise squared
// distances between all neuron positions, which downstream kernel generation
// reads for every epoch.
package lattice

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidDimension is a named error type for non-positive grid dimensions.
type ErrInvalidDimension struct {
	Rows int
	Cols int
}

// Error returns the error message for invalid grid dimensions.
func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid lattice dimensions: %dx%d (rows and cols must be positive)", e.Rows, e.Cols)
}

// Grid is a rows×cols rectangular lattice of neurons. Neuron i sits at
// row i/cols, column i%cols.
type Grid struct {
	rows int
	cols int
	d2   *mat.SymDense
}

// New creates a Grid with the given dimensions.
func New(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, &ErrInvalidDimension{Rows: rows, Cols: cols}
	}

	k := rows * cols
	d2 := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		ri, ci := i/cols, i%cols
		for j := i + 1; j < k; j++ {
			rj, cj := j/cols, j%cols
			dr, dc := ri-rj, ci-cj
			d2.SetSym(i, j, float64(dr*dr+dc*dc))
		}
	}

	return &Grid{rows: rows, cols: cols, d2: d2}, nil
}

// Rows returns the number of neuron rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of neuron columns.
func (g *Grid) Cols() int { return g.cols }

// Neurons returns the total neuron count rows·cols.
func (g *Grid) Neurons() int { return g.rows * g.cols }

// Coord returns the (row, col) position of neuron i.
func (g *Grid) Coord(i int) (row, col int) {
	return i / g.cols, i % g.cols
}

// Index returns the linear index of the neuron at (row, col).
func (g *Grid) Index(row, col int) int {
	return row*g.cols + col
}

// SquaredDistance returns the squared lattice distance between neurons i and j.
func (g *Grid) SquaredDistance(i, j int) float64 {
	return g.d2.At(i, j)
}

// SquaredDistances returns the full pairwise squared-distance matrix. The
// returned matrix is shared with the grid and must not be modified.
func (g *Grid) SquaredDistances() *mat.SymDense {
	return g.d2
}

// MaxRadius returns the largest pairwise distance on the grid, the lattice
// diagonal sqrt((rows-1)² + (cols-1)²).
func (g *Grid) MaxRadius() float64 {
	return math.Sqrt(float64((g.rows-1)*(g.rows-1) + (g.cols-1)*(g.cols-1)))
}
