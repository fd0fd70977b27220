package gosom

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/gosom/lattice"
)

// GobEncode implements the gob.GobEncoder interface for Model.
func (m *Model) GobEncode() ([]byte, error) {
	if !m.fitted() {
		return nil, ErrNotFitted
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)

	if err := encoder.Encode(m.grid.Rows()); err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	if err := encoder.Encode(m.grid.Cols()); err != nil {
		return nil, fmt.Errorf("failed to encode cols: %w", err)
	}

	if err := encoder.Encode(m.Features()); err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	if err := encoder.Encode(m.weights.RawMatrix().Data); err != nil {
		return nil, fmt.Errorf("failed to encode weights: %w", err)
	}

	if err := encoder.Encode(m.bmus); err != nil {
		return nil, fmt.Errorf("failed to encode bmus: %w", err)
	}

	if err := encoder.Encode(m.dmat.RawSymmetric().Data); err != nil {
		return nil, fmt.Errorf("failed to encode distances: %w", err)
	}

	if err := encoder.Encode(m.inertia); err != nil {
		return nil, fmt.Errorf("failed to encode inertia: %w", err)
	}

	degenerate, err := m.degenerate.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode degenerate set: %w", err)
	}
	if err := encoder.Encode(degenerate); err != nil {
		return nil, fmt.Errorf("failed to encode degenerate set: %w", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for Model. The decoded
// model logs nothing and records no metrics.
func (m *Model) GobDecode(data []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))

	var rows int
	if err := decoder.Decode(&rows); err != nil {
		return fmt.Errorf("failed to decode rows: %w", err)
	}

	var cols int
	if err := decoder.Decode(&cols); err != nil {
		return fmt.Errorf("failed to decode cols: %w", err)
	}

	var features int
	if err := decoder.Decode(&features); err != nil {
		return fmt.Errorf("failed to decode features: %w", err)
	}

	grid, err := lattice.New(rows, cols)
	if err != nil {
		return err
	}

	var weights []float64
	if err := decoder.Decode(&weights); err != nil {
		return fmt.Errorf("failed to decode weights: %w", err)
	}

	var bmus []int
	if err := decoder.Decode(&bmus); err != nil {
		return fmt.Errorf("failed to decode bmus: %w", err)
	}

	var dmat []float64
	if err := decoder.Decode(&dmat); err != nil {
		return fmt.Errorf("failed to decode distances: %w", err)
	}

	var inertia float64
	if err := decoder.Decode(&inertia); err != nil {
		return fmt.Errorf("failed to decode inertia: %w", err)
	}

	var degenerate []byte
	if err := decoder.Decode(&degenerate); err != nil {
		return fmt.Errorf("failed to decode degenerate set: %w", err)
	}

	k := grid.Neurons()
	if features <= 0 || len(weights) != k*features || len(dmat) != k*k {
		return errors.New("corrupted model state: unexpected matrix size")
	}

	rb := roaring.New()
	if err := rb.UnmarshalBinary(degenerate); err != nil {
		return fmt.Errorf("failed to decode degenerate set: %w", err)
	}

	m.grid = grid
	m.weights = mat.NewDense(k, features, weights)
	m.bmus = bmus
	m.dmat = mat.NewSymDense(k, dmat)
	m.inertia = inertia
	m.degenerate = rb
	m.metrics = NoopMetricsCollector{}
	m.logger = NoopLogger()

	return nil
}
