package gosom

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/gosom/kernel"
	"github.com/hupe1980/gosom/lattice"
)

func testData() *mat.Dense {
	return mat.NewDense(8, 3, []float64{
		0.1, 0.2, 0.3,
		0.9, 0.8, 0.7,
		0.2, 0.1, 0.4,
		0.8, 0.9, 0.6,
		0.15, 0.25, 0.35,
		0.85, 0.75, 0.65,
		0.05, 0.3, 0.25,
		0.95, 0.7, 0.8,
	})
}

func TestNew_ConfigErrors(t *testing.T) {
	t.Run("invalid lattice", func(t *testing.T) {
		som, err := New(0, 5)
		assert.Nil(t, som)

		var dimErr *lattice.ErrInvalidDimension
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("invalid epochs", func(t *testing.T) {
		_, err := New(2, 2, WithEpochs(0))
		assert.ErrorIs(t, err, ErrInvalidEpochs)
	})

	t.Run("invalid neighbourhood", func(t *testing.T) {
		_, err := New(2, 2, WithNeighbourhood(kernel.Family(9)))

		var famErr *kernel.ErrInvalidFamily
		require.ErrorAs(t, err, &famErr)
		assert.Equal(t, kernel.Family(9), famErr.Family)
	})

	t.Run("invalid initializer", func(t *testing.T) {
		_, err := New(2, 2, WithInitializer(Initializer(9)))

		var initErr *ErrInvalidInitializer
		require.ErrorAs(t, err, &initErr)
		assert.Equal(t, Initializer(9), initErr.Initializer)
	})
}

// emptyMatrix reports zero samples without allocating; mat.NewDense rejects
// zero dimensions outright.
type emptyMatrix struct{}

func (emptyMatrix) Dims() (int, int)    { return 0, 2 }
func (emptyMatrix) At(_, _ int) float64 { panic("empty") }
func (e emptyMatrix) T() mat.Matrix     { return e }

func TestFit_EmptyTrainingSet(t *testing.T) {
	som, err := New(2, 2)
	require.NoError(t, err)

	_, err = som.Fit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = som.Fit(context.Background(), emptyMatrix{})
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)
}

func TestFit_Determinism(t *testing.T) {
	for _, initializer := range []Initializer{InitializerPCA, InitializerRandom} {
		t.Run(initializer.String(), func(t *testing.T) {
			ctx := context.Background()

			fit := func(seed int64) *Model {
				som, err := New(3, 3, WithInitializer(initializer), WithSeed(seed), WithEpochs(5))
				require.NoError(t, err)
				model, err := som.Fit(ctx, testData())
				require.NoError(t, err)
				return model
			}

			m1 := fit(42)
			m2 := fit(42)
			assert.True(t, mat.Equal(m1.Weights(), m2.Weights()))
			assert.Equal(t, m1.BMUs(), m2.BMUs())
			assert.Equal(t, m1.Inertia(), m2.Inertia())

			m3 := fit(43)
			assert.False(t, mat.Equal(m1.Weights(), m3.Weights()))
		})
	}
}

func TestFit_BMUOptimality(t *testing.T) {
	ctx := context.Background()
	data := testData()

	som, err := New(3, 3, WithSeed(7))
	require.NoError(t, err)
	model, err := som.Fit(ctx, data)
	require.NoError(t, err)

	w := model.Weights()
	m, _ := data.Dims()
	for i := 0; i < m; i++ {
		xi := data.RawRowView(i)
		best := squaredDistance(xi, w.RawRowView(model.BMUs()[i]))
		for j := 0; j < model.Neurons(); j++ {
			assert.LessOrEqual(t, best, squaredDistance(xi, w.RawRowView(j)),
				"sample %d: neuron %d beats its BMU", i, j)
		}
	}
}

func TestFit_Shapes(t *testing.T) {
	ctx := context.Background()
	data := testData()
	m, f := data.Dims()

	som, err := New(2, 4, WithSeed(11), WithEpochs(3))
	require.NoError(t, err)
	model, err := som.Fit(ctx, data)
	require.NoError(t, err)

	k := model.Neurons()
	assert.Equal(t, 8, k)
	assert.Equal(t, 2, model.Rows())
	assert.Equal(t, 4, model.Cols())
	assert.Equal(t, f, model.Features())

	wr, wc := model.Weights().Dims()
	assert.Equal(t, k, wr)
	assert.Equal(t, f, wc)

	require.Len(t, model.BMUs(), m)
	for _, bmu := range model.BMUs() {
		assert.GreaterOrEqual(t, bmu, 0)
		assert.Less(t, bmu, k)
	}

	assert.Equal(t, k, model.Distances().SymmetricDim())
	assert.GreaterOrEqual(t, model.Inertia(), 0.0)
}

// splitSeed replays the initializer's draw order to find a seed whose random
// 1×2 codebook puts one weight row nearer the origin and the other nearer
// (10,10).
func splitSeed(t *testing.T) int64 {
	t.Helper()

	for seed := int64(0); seed < 1000; seed++ {
		rng := rand.New(rand.NewSource(seed))
		w := [4]float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}

		d00 := w[0]*w[0] + w[1]*w[1]
		d01 := w[2]*w[2] + w[3]*w[3]
		d10 := (10-w[0])*(10-w[0]) + (10-w[1])*(10-w[1])
		d11 := (10-w[2])*(10-w[2]) + (10-w[3])*(10-w[3])

		if d00 < d01 && d11 < d10 {
			return seed
		}
	}

	t.Fatal("no splitting seed below 1000")
	return 0
}

func TestFit_TwoPointsConverge(t *testing.T) {
	ctx := context.Background()
	data := mat.NewDense(2, 2, []float64{
		0, 0,
		10, 10,
	})

	// On a 1×2 lattice the default Rmax is 1, so the linear kernel is zero
	// between the two neurons at every epoch and each neuron converges to
	// exactly its own sample.
	som, err := New(1, 2,
		WithNeighbourhood(kernel.Linear),
		WithInitializer(InitializerRandom),
		WithSeed(splitSeed(t)),
	)
	require.NoError(t, err)

	model, err := som.Fit(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, model.BMUs())
	assert.InDelta(t, 0, model.Inertia(), 1e-12)
	assert.Nil(t, model.DegenerateNeurons())

	assert.InDelta(t, 0, model.Weights().At(0, 0), 1e-12)
	assert.InDelta(t, 10, model.Weights().At(1, 1), 1e-12)
}

// collinearSeed replays the initializer's draw order to find a seed whose
// random 1×3 codebook puts neuron 0 strictly nearest to all three collinear
// samples, so every sample lands on it at the first assignment.
func collinearSeed(t *testing.T) int64 {
	t.Helper()

	samples := [3][2]float64{{0, 0}, {2, 0}, {4, 0}}

	for seed := int64(0); seed < 10000; seed++ {
		rng := rand.New(rand.NewSource(seed))
		var w [6]float64
		for i := range w {
			w[i] = rng.Float64()
		}

		wins := true
		for _, s := range samples {
			d0 := (s[0]-w[0])*(s[0]-w[0]) + (s[1]-w[1])*(s[1]-w[1])
			d1 := (s[0]-w[2])*(s[0]-w[2]) + (s[1]-w[3])*(s[1]-w[3])
			d2 := (s[0]-w[4])*(s[0]-w[4]) + (s[1]-w[5])*(s[1]-w[5])
			if d0 >= d1 || d0 >= d2 {
				wins = false
				break
			}
		}
		if wins {
			return seed
		}
	}

	t.Fatal("no collinear seed below 10000")
	return 0
}

// fitCollinear trains a 1×3 bubble map whose radius covers nothing beyond
// each neuron itself, on three collinear samples. Every sample lands on
// neuron 0, starving neurons 1 and 2 into NaN.
func fitCollinear(t *testing.T) *Model {
	t.Helper()

	data := mat.NewDense(3, 2, []float64{
		0, 0,
		2, 0,
		4, 0,
	})

	som, err := New(1, 3,
		WithNeighbourhood(kernel.Bubble),
		WithRmax(0.4),
		WithEpochs(1),
		WithSeed(collinearSeed(t)),
	)
	require.NoError(t, err)

	model, err := som.Fit(context.Background(), data)
	require.NoError(t, err)
	return model
}

func TestFit_DegenerateNeurons(t *testing.T) {
	model := fitCollinear(t)

	assert.Equal(t, []int{0, 0, 0}, model.BMUs())

	// Neuron 0 is the exact centroid of the samples.
	assert.Equal(t, 2.0, model.Weights().At(0, 0))
	assert.Equal(t, 0.0, model.Weights().At(0, 1))

	assert.Equal(t, []int{1, 2}, model.DegenerateNeurons())
	assert.False(t, model.IsDegenerate(0))
	assert.True(t, model.IsDegenerate(1))
	assert.True(t, model.IsDegenerate(2))
	for _, neuron := range model.DegenerateNeurons() {
		assert.True(t, math.IsNaN(model.Weights().At(neuron, 0)))
		assert.True(t, math.IsNaN(model.Weights().At(neuron, 1)))
	}

	// (0-2)² + (2-2)² + (4-2)²
	assert.Equal(t, 8.0, model.Inertia())

	assert.Equal(t, 0.0, model.Distances().At(0, 0))
	assert.True(t, math.IsNaN(model.Distances().At(0, 1)))
	assert.True(t, math.IsNaN(model.Distances().At(1, 2)))
	assert.True(t, math.IsNaN(model.Distances().At(1, 1)))
}

func TestFit_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	som, err := New(3, 3, WithSeed(5))
	require.NoError(t, err)

	model, err := som.Fit(ctx, testData())
	assert.Nil(t, model)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFit_PCAInsufficientFeatures(t *testing.T) {
	som, err := New(2, 2, WithInitializer(InitializerPCA))
	require.NoError(t, err)

	data := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	_, err = som.Fit(context.Background(), data)
	assert.ErrorIs(t, err, ErrInsufficientFeatures)
}

func TestFit_Progress(t *testing.T) {
	var epochs []int
	var totals []int

	som, err := New(2, 2,
		WithSeed(3),
		WithEpochs(5),
		WithProgress(func(epoch, total int) {
			epochs = append(epochs, epoch)
			totals = append(totals, total)
		}),
		WithProgressInterval(0), // no throttling
	)
	require.NoError(t, err)

	_, err = som.Fit(context.Background(), testData())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, epochs)
	for _, total := range totals {
		assert.Equal(t, 5, total)
	}
}

func TestFit_ProgressThrottled(t *testing.T) {
	var calls int

	som, err := New(2, 2,
		WithSeed(3),
		WithEpochs(50),
		WithProgress(func(epoch, total int) { calls++ }),
		WithProgressInterval(time.Hour),
	)
	require.NoError(t, err)

	_, err = som.Fit(context.Background(), testData())
	require.NoError(t, err)

	// First epoch, final epoch, plus at most the limiter's initial token.
	assert.GreaterOrEqual(t, calls, 2)
	assert.LessOrEqual(t, calls, 3)
}

func TestFit_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}

	som, err := New(2, 2, WithSeed(9), WithEpochs(4), WithMetricsCollector(metrics))
	require.NoError(t, err)

	_, err = som.Fit(context.Background(), testData())
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.FitCount)
	assert.Equal(t, int64(0), stats.FitErrors)
	assert.Equal(t, int64(4), stats.EpochCount)
	assert.Equal(t, int64(0), stats.DegenerateNeurons)
}

func TestFit_MetricsDegenerate(t *testing.T) {
	metrics := &BasicMetricsCollector{}

	data := mat.NewDense(3, 2, []float64{0, 0, 2, 0, 4, 0})
	som, err := New(1, 3,
		WithNeighbourhood(kernel.Bubble),
		WithRmax(0.4),
		WithEpochs(1),
		WithSeed(collinearSeed(t)),
		WithMetricsCollector(metrics),
	)
	require.NoError(t, err)

	_, err = som.Fit(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.GetStats().DegenerateNeurons)
}

func TestSeed(t *testing.T) {
	som, err := New(2, 2, WithSeed(123))
	require.NoError(t, err)
	assert.Equal(t, int64(123), som.Seed())
}
