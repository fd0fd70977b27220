package gosom_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/gosom"
	"github.com/hupe1980/gosom/cluster"
	"github.com/hupe1980/gosom/kernel"
)

// Example_train demonstrates training a map on a small dataset.
func Example_train() {
	ctx := context.Background()

	data := mat.NewDense(6, 2, []float64{
		1.0, 1.2,
		0.9, 1.1,
		1.1, 0.8,
		8.0, 8.1,
		7.9, 8.3,
		8.2, 7.8,
	})

	som, err := gosom.New(3, 3,
		gosom.WithSeed(42), // Reproducible runs
		gosom.WithEpochs(20),
	)
	if err != nil {
		log.Fatal(err)
	}

	model, err := som.Fit(ctx, data)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Trained a %dx%d map on %d samples\n", model.Rows(), model.Cols(), len(model.BMUs()))
	// Output: Trained a 3x3 map on 6 samples
}

// Example_customOptions demonstrates tuning the kernel, schedule and initializer.
func Example_customOptions() {
	som, err := gosom.New(4, 5,
		gosom.WithNeighbourhood(kernel.Linear),
		gosom.WithInitializer(gosom.InitializerRandom),
		gosom.WithRmax(2.5), // Initial neighbourhood radius
		gosom.WithEpochs(30),
		gosom.WithSeed(7),
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Map has %d neurons\n", som.Grid().Neurons())
	// Output: Map has 20 neurons
}

// Example_assign demonstrates mapping unseen vectors onto a trained map.
func Example_assign() {
	ctx := context.Background()

	data := mat.NewDense(4, 3, []float64{
		0.1, 0.2, 0.3,
		0.2, 0.1, 0.4,
		5.0, 5.1, 5.2,
		5.2, 4.9, 5.0,
	})

	som, _ := gosom.New(2, 2, gosom.WithSeed(1))
	model, err := som.Fit(ctx, data)
	if err != nil {
		log.Fatal(err)
	}

	// Assign recomputes best matching units for new data
	queries := mat.NewDense(2, 3, []float64{
		0.15, 0.15, 0.35,
		5.10, 5.00, 5.10,
	})

	assignments, err := model.Assign(queries)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Assigned %d query vectors\n", len(assignments))
	// Output: Assigned 2 query vectors
}

// Example_progress demonstrates observing training progress per epoch.
func Example_progress() {
	ctx := context.Background()

	data := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})

	updates := 0

	som, _ := gosom.New(2, 2,
		gosom.WithSeed(3),
		gosom.WithEpochs(5),
		gosom.WithProgress(func(epoch, total int) { updates++ }),
		gosom.WithProgressInterval(0), // Report every epoch
	)

	if _, err := som.Fit(ctx, data); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Observed %d progress updates\n", updates)
	// Output: Observed 5 progress updates
}

// Example_visualization demonstrates the U-matrix and component planes.
func Example_visualization() {
	ctx := context.Background()

	data := mat.NewDense(6, 2, []float64{
		1, 1,
		1, 2,
		2, 1,
		8, 8,
		8, 9,
		9, 8,
	})

	som, _ := gosom.New(3, 3, gosom.WithSeed(11))
	model, err := som.Fit(ctx, data)
	if err != nil {
		log.Fatal(err)
	}

	// U-matrix interleaves neighbour distances between the neurons
	umatrix := model.UMatrix()
	ur, uc := umatrix.Dims()
	fmt.Printf("U-matrix: %dx%d\n", ur, uc)

	// One plane per feature, laid out like the lattice
	plane, err := model.ComponentPlane(0)
	if err != nil {
		log.Fatal(err)
	}
	pr, pc := plane.Dims()
	fmt.Printf("Component plane: %dx%d\n", pr, pc)
	// Output:
	// U-matrix: 5x5
	// Component plane: 3x3
}

// Example_snapshot demonstrates persisting a trained model to disk.
func Example_snapshot() {
	ctx := context.Background()
	path := "./example_model.som"
	defer os.Remove(path) // Cleanup after example

	data := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		9, 9,
		9, 8,
	})

	som, _ := gosom.New(3, 3, gosom.WithSeed(5))
	model, err := som.Fit(ctx, data)
	if err != nil {
		log.Fatal(err)
	}

	if err := model.SaveToFile(path, gosom.WithCompression(gosom.CompressionZSTD)); err != nil {
		log.Fatal(err)
	}

	loaded, err := gosom.LoadModelFromFile(path)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Restored a %dx%d map\n", loaded.Rows(), loaded.Cols())
	// Output: Restored a 3x3 map
}

// Example_clustering demonstrates two-stage clustering on top of a map.
func Example_clustering() {
	ctx := context.Background()

	data := mat.NewDense(8, 2, []float64{
		0.0, 0.0,
		0.2, 0.1,
		0.1, 0.3,
		0.3, 0.2,
		10.0, 10.0,
		10.2, 10.1,
		9.8, 10.2,
		10.1, 9.9,
	})

	c, err := cluster.New(3, 3, 2, gosom.WithSeed(42), gosom.WithEpochs(10))
	if err != nil {
		log.Fatal(err)
	}

	if err := c.Fit(ctx, data); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Computed %d cluster labels\n", len(c.Labels()))
	// Output: Computed 8 cluster labels
}
