// Package gosom provides batch training of self-organizing maps (SOM) for Go.
//
// A self-organizing map projects high-dimensional data onto a small
// rectangular lattice of neurons while preserving topology: nearby samples
// end up on nearby neurons. Gosom implements the batch variant, where every
// epoch reassigns all samples to their best matching units (BMU) and then
// recomputes every weight vector as a kernel-weighted centroid, so training
// is deterministic for a fixed seed.
//
// # Quick Start
//
// Train a 10×10 map and inspect the result:
//
//	ctx := context.Background()
//	som, _ := gosom.New(10, 10, gosom.WithEpochs(20), gosom.WithSeed(42))
//	model, _ := som.Fit(ctx, data) // data is a gonum mat.Matrix, samples×features
//
//	model.Inertia()        // quantization error
//	model.BMUs()           // training assignments
//	bmus, _ := model.Assign(newData)
//
// # Visualization Data
//
// Models export the arrays a renderer needs without depending on one:
//
//	umat := model.UMatrix()            // (2·rows−1)×(2·cols−1) U-matrix grid
//	plane, _ := model.ComponentPlane(0) // rows×cols slice of one feature
//
// # Persistence
//
// Snapshots are checksummed and optionally compressed:
//
//	_ = model.SaveToFile("som.snap", gosom.WithCompression(gosom.CompressionZSTD))
//	model, _ = gosom.LoadModelFromFile("som.snap")
//
// # Clustering
//
// The cluster package layers two-stage clustering on top of the trainer:
// unsupervised via a second 1×n map over the codebook, supervised via
// per-neuron majority votes:
//
//	c, _ := cluster.New(10, 10, 3)
//	_ = c.Fit(ctx, data)               // or c.FitLabeled(ctx, data, y)
//	labels, _ := c.Predict(newData)
//
// # Key Features
//
//   - Batch SOM training with gaussian, exponential, linear and bubble kernels
//   - PCA (two principal components) or uniform random weight initialization
//   - Deterministic for a fixed seed; context cancellation between epochs
//   - U-matrix and component-plane exports for rendering collaborators
//   - Checksummed snapshots with optional LZ4/ZSTD compression
//   - Degenerate-neuron detection instead of silent NaN surprises
package gosom
