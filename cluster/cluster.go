// Package cluster implements two-stage clustering on top of the batch SOM
// trainer. A first map quantizes the data; its codebook is then labeled
// either by a second 1×n map (unsupervised) or by per-neuron majority votes
// over known classes (supervised).
package cluster

import (
	"context"
	"errors"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/gosom"
)

// Unlabeled marks neurons that carry no label. After a supervised fit a
// neuron can stay unlabeled only when its feature-space distances to every
// voted neuron are NaN.
const Unlabeled = -1

// ErrInvalidClusters is returned when the target cluster count is not positive.
var ErrInvalidClusters = errors.New("number of clusters must be positive")

// Clusterer assigns cluster or class labels to data through a trained SOM.
// The zero value is not usable; construct with New.
//
// A clusterer is not safe for concurrent fits; a fitted clusterer is safe
// for concurrent Predict calls.
type Clusterer struct {
	som       *gosom.SOM
	nClusters int

	model        *gosom.Model
	neuronLabels []int
	labeled      *roaring.Bitmap
	labels       []int
}

// New creates a two-stage clusterer over a rows×cols map targeting
// nClusters clusters. The options configure the first-stage trainer only;
// the unsupervised second stage always runs with default parameters and a
// seed derived from the first stage.
func New(rows, cols, nClusters int, optFns ...gosom.Option) (*Clusterer, error) {
	if nClusters <= 0 {
		return nil, ErrInvalidClusters
	}

	som, err := gosom.New(rows, cols, optFns...)
	if err != nil {
		return nil, err
	}

	return &Clusterer{
		som:       som,
		nClusters: nClusters,
	}, nil
}

// Fit trains the map on x and derives unsupervised cluster labels by
// training a second, 1×nClusters map on the first map's codebook. Each
// neuron is labeled with the second-stage assignment of its weight row;
// per-sample labels follow from the first-stage assignments and are
// available through Labels.
func (c *Clusterer) Fit(ctx context.Context, x mat.Matrix) error {
	model, err := c.som.Fit(ctx, x)
	if err != nil {
		return err
	}

	second, err := gosom.New(1, c.nClusters, gosom.WithSeed(c.som.Seed()+1))
	if err != nil {
		return err
	}
	codebook, err := second.Fit(ctx, model.Weights())
	if err != nil {
		return err
	}

	k := model.Neurons()
	neuronLabels := make([]int, k)
	copy(neuronLabels, codebook.BMUs())

	bmus := model.BMUs()
	labels := make([]int, len(bmus))
	for i, bmu := range bmus {
		labels[i] = neuronLabels[bmu]
	}

	labeled := roaring.New()
	labeled.AddRange(0, uint64(k))

	c.model = model
	c.neuronLabels = neuronLabels
	c.labeled = labeled
	c.labels = labels

	return nil
}

// FitLabeled trains the map on x and labels every neuron with the majority
// class among the samples assigned to it, ties going to the smallest label
// value. Neurons that attract no samples inherit the label of the nearest
// voted neuron in feature space. y holds one class label per row of x.
func (c *Clusterer) FitLabeled(ctx context.Context, x mat.Matrix, y []int) error {
	if x == nil {
		return gosom.ErrEmptyTrainingSet
	}
	if n, _ := x.Dims(); len(y) != n {
		return &gosom.ErrDimensionMismatch{Expected: n, Actual: len(y)}
	}

	model, err := c.som.Fit(ctx, x)
	if err != nil {
		return err
	}

	k := model.Neurons()
	neuronLabels := make([]int, k)
	for i := range neuronLabels {
		neuronLabels[i] = Unlabeled
	}
	labeled := roaring.New()

	votes := make([]map[int]int, k)
	for i, bmu := range model.BMUs() {
		if votes[bmu] == nil {
			votes[bmu] = make(map[int]int)
		}
		votes[bmu][y[i]]++
	}
	for i, v := range votes {
		if len(v) == 0 {
			continue
		}
		neuronLabels[i] = majorityLabel(v)
		labeled.Add(uint32(i))
	}

	backfill(neuronLabels, labeled, model.Distances())

	c.model = model
	c.neuronLabels = neuronLabels
	c.labeled = labeled
	c.labels = nil // per-sample labels are an unsupervised output

	return nil
}

// Predict computes fresh first-stage assignments for x and maps them
// through the neuron labels.
func (c *Clusterer) Predict(x mat.Matrix) ([]int, error) {
	if c.model == nil {
		return nil, gosom.ErrNotFitted
	}

	bmus, err := c.model.Assign(x)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(bmus))
	for i, bmu := range bmus {
		labels[i] = c.neuronLabels[bmu]
	}

	return labels, nil
}

// Model returns the trained first-stage map, or nil before a fit.
func (c *Clusterer) Model() *gosom.Model { return c.model }

// Clusters returns the targeted cluster count.
func (c *Clusterer) Clusters() int { return c.nClusters }

// NeuronLabels returns the label of each neuron, Unlabeled where no label
// could be derived. Nil before a fit. The slice is shared and must not be
// modified.
func (c *Clusterer) NeuronLabels() []int { return c.neuronLabels }

// Labels returns the per-sample cluster labels of the last unsupervised
// fit, in training set order. Nil before a fit and after a supervised fit.
// The slice is shared and must not be modified.
func (c *Clusterer) Labels() []int { return c.labels }

// IsLabeled reports whether the neuron carries a label.
func (c *Clusterer) IsLabeled(neuron int) bool {
	return c.labeled != nil && c.labeled.Contains(uint32(neuron))
}

// majorityLabel returns the most frequent label, breaking ties toward the
// smallest label value.
func majorityLabel(votes map[int]int) int {
	best := 0
	bestCount := 0
	first := true
	for label, count := range votes {
		if first || count > bestCount || (count == bestCount && label < best) {
			best = label
			bestCount = count
			first = false
		}
	}
	return best
}

// backfill labels every unlabeled neuron from its nearest labeled neuron by
// feature-space distance. The nearest is resolved against the voted set
// only, so backfilled labels never propagate further. NaN distances never
// win; a neuron with no finite distance to any voted neuron stays unlabeled.
func backfill(neuronLabels []int, labeled *roaring.Bitmap, dmat mat.Symmetric) {
	fills := make(map[int]int)

	for i := range neuronLabels {
		if labeled.Contains(uint32(i)) {
			continue
		}

		nearest := -1
		nearestDist := math.Inf(1)
		for j := range neuronLabels {
			if !labeled.Contains(uint32(j)) {
				continue
			}
			if d := dmat.At(i, j); d < nearestDist {
				nearest = j
				nearestDist = d
			}
		}

		if nearest >= 0 {
			fills[i] = neuronLabels[nearest]
		}
	}

	for i, label := range fills {
		neuronLabels[i] = label
		labeled.Add(uint32(i))
	}
}
