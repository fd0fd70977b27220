package gosom

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFitted is returned when predictions are requested from a model
	// that has not been trained. This is an expected, recoverable condition.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrInvalidEpochs is returned when the number of epochs is not positive.
	ErrInvalidEpochs = errors.New("number of epochs must be positive")

	// ErrEmptyTrainingSet is returned when fit is called without samples or
	// without features.
	ErrEmptyTrainingSet = errors.New("training set must not be empty")

	// ErrInsufficientFeatures is returned when PCA initialization is requested
	// for data with fewer than two features.
	ErrInsufficientFeatures = errors.New("pca initialization needs at least two features")

	// ErrEigenDecomposition is returned when the symmetric eigendecomposition
	// of the covariance matrix fails, typically because the training data
	// contains NaN or Inf entries.
	ErrEigenDecomposition = errors.New("eigendecomposition of the covariance matrix failed")
)

// ErrDimensionMismatch indicates a feature dimensionality mismatch between
// the training data and a later input.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidInitializer indicates an unsupported weight initializer.
type ErrInvalidInitializer struct {
	Initializer Initializer
}

func (e *ErrInvalidInitializer) Error() string {
	return fmt.Sprintf("invalid initializer: %d", int(e.Initializer))
}
