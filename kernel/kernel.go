// Package kernel generates the neighbourhood weight matrices that drive
// batch SOM weight updates.
//
// A training run uses one k×k weight matrix per epoch, derived from the
// lattice's squared-distance matrix and a shrinking radius schedule. The
// matrices dominate training memory at O(epochs·k²) for k neurons; size
// lattices and epoch counts with that in mind.
package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// terminalRadius is the radius every schedule descends to at the last epoch.
const terminalRadius = 0.5

// Family represents the neighbourhood function family applied around each
// best matching unit.
type Family int

// Constants representing the supported neighbourhood families.
const (
	Gaussian Family = iota
	Exponential
	Linear
	Bubble
)

// String returns a string representation of the Family.
func (f Family) String() string {
	switch f {
	case Gaussian:
		return "gaussian"
	case Exponential:
		return "exponential"
	case Linear:
		return "linear"
	case Bubble:
		return "bubble"
	default:
		return "unknown"
	}
}

// Valid reports whether f names a supported neighbourhood family.
func (f Family) Valid() bool {
	switch f {
	case Gaussian, Exponential, Linear, Bubble:
		return true
	default:
		return false
	}
}

// ErrInvalidFamily is a named error type for unrecognized neighbourhood
// families.
type ErrInvalidFamily struct {
	Family Family
}

// Error returns the error message for an invalid neighbourhood family.
func (e *ErrInvalidFamily) Error() string {
	return fmt.Sprintf("invalid neighbourhood family: %d", int(e.Family))
}

// WeightFunc computes the neighbourhood weight for a pair of neurons from
// their squared lattice distance and the epoch radius.
type WeightFunc func(d2, sig float64) float64

// Provider returns the weight function for the given family.
func Provider(family Family) (WeightFunc, error) {
	switch family {
	case Gaussian:
		// Uses the squared distance directly, unlike exponential.
		return func(d2, sig float64) float64 {
			return math.Exp(-d2 / (2 * sig))
		}, nil
	case Exponential:
		return func(d2, sig float64) float64 {
			return math.Exp(-math.Sqrt(d2) / (2 * sig))
		}, nil
	case Linear:
		return func(d2, sig float64) float64 {
			return clip(1-math.Sqrt(d2)/sig, 0, 1)
		}, nil
	case Bubble:
		return func(d2, sig float64) float64 {
			if math.Sqrt(d2) <= sig {
				return 1
			}
			return 0
		}, nil
	default:
		return nil, &ErrInvalidFamily{Family: family}
	}
}

// Schedule returns the per-epoch neighbourhood radii: nEpochs values linearly
// spaced from rmax down to the terminal radius 0.5 inclusive. A single epoch
// uses rmax alone.
func Schedule(rmax float64, nEpochs int) []float64 {
	if nEpochs == 1 {
		return []float64{rmax}
	}
	return floats.Span(make([]float64, nEpochs), rmax, terminalRadius)
}

// Generate produces one symmetric k×k neighbourhood weight matrix per radius
// in sigs, for the lattice whose pairwise squared distances are d2. Output is
// deterministic given the inputs.
func Generate(family Family, d2 mat.Symmetric, sigs []float64) ([]*mat.Dense, error) {
	weight, err := Provider(family)
	if err != nil {
		return nil, err
	}

	k := d2.SymmetricDim()
	kernels := make([]*mat.Dense, len(sigs))
	for e, sig := range sigs {
		m := mat.NewDense(k, k, nil)
		for i := 0; i < k; i++ {
			m.Set(i, i, weight(d2.At(i, i), sig))
			for j := i + 1; j < k; j++ {
				w := weight(d2.At(i, j), sig)
				m.Set(i, j, w)
				m.Set(j, i, w)
			}
		}
		kernels[e] = m
	}

	return kernels, nil
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
