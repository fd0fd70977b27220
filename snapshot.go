package gosom

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the snapshot payload compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 applies LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD applies ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

// Valid reports whether the compression algorithm is known.
func (c Compression) Valid() bool {
	return c == CompressionNone || c == CompressionLZ4 || c == CompressionZSTD
}

// ErrInvalidSnapshot is returned when snapshot data is malformed.
var ErrInvalidSnapshot = errors.New("invalid snapshot format")

// ErrChecksumMismatch is returned when snapshot payload verification fails.
type ErrChecksumMismatch struct {
	Expected uint32
	Actual   uint32
}

func (e *ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

var snapshotMagic = [4]byte{'G', 'S', 'M', '1'}

const (
	snapshotVersion    = uint16(1)
	snapshotHeaderSize = 24
)

// SnapshotOption configures how a model snapshot is written.
type SnapshotOption func(*snapshotOptions)

type snapshotOptions struct {
	compression Compression
}

// WithCompression sets the snapshot payload compression. The default is
// CompressionNone.
func WithCompression(compression Compression) SnapshotOption {
	return func(o *snapshotOptions) {
		o.compression = compression
	}
}

// SaveModel writes a checksummed snapshot of the model to w.
//
// Snapshot layout:
//
//	[0:4]   magic "GSM1"
//	[4:6]   format version (little endian)
//	[6]     compression algorithm
//	[8:16]  payload length (little endian)
//	[16:20] CRC32 (IEEE) of the payload
//	[24:]   payload (gob-encoded model state, optionally compressed)
func SaveModel(w io.Writer, model *Model, optFns ...SnapshotOption) error {
	if w == nil {
		return errors.New("snapshot: writer is nil")
	}
	if !model.fitted() {
		return ErrNotFitted
	}

	opts := snapshotOptions{compression: CompressionNone}
	for _, fn := range optFns {
		fn(&opts)
	}
	if !opts.compression.Valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrInvalidSnapshot, opts.compression)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(model); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	payload, err := compressPayload(buf.Bytes(), opts.compression)
	if err != nil {
		return err
	}

	var header [snapshotHeaderSize]byte
	copy(header[0:4], snapshotMagic[:])
	binary.LittleEndian.PutUint16(header[4:6], snapshotVersion)
	header[6] = byte(opts.compression)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(payload)))
	binary.LittleEndian.PutUint32(header[16:20], crc32.ChecksumIEEE(payload))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}

	return nil
}

// LoadModel reads a model snapshot written by SaveModel from r. The payload
// checksum is verified before decoding.
func LoadModel(r io.Reader) (*Model, error) {
	if r == nil {
		return nil, errors.New("snapshot: reader is nil")
	}

	var header [snapshotHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}

	if !bytes.Equal(header[0:4], snapshotMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}
	if v := binary.LittleEndian.Uint16(header[4:6]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, v)
	}

	compression := Compression(header[6])
	if !compression.Valid() {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidSnapshot, compression)
	}

	payloadLen := binary.LittleEndian.Uint64(header[8:16])
	if payloadLen > uint64(^uint(0)>>1) {
		return nil, fmt.Errorf("%w: payload length out of range", ErrInvalidSnapshot)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read snapshot payload: %w", err)
	}

	expected := binary.LittleEndian.Uint32(header[16:20])
	if actual := crc32.ChecksumIEEE(payload); actual != expected {
		return nil, &ErrChecksumMismatch{Expected: expected, Actual: actual}
	}

	decoded, err := decompressPayload(payload, compression)
	if err != nil {
		return nil, err
	}

	model := &Model{}
	if err := gob.NewDecoder(bytes.NewReader(decoded)).Decode(model); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	return model, nil
}

// SaveToFile writes a snapshot of the model to filename, atomically
// replacing any existing file.
func (m *Model) SaveToFile(filename string, optFns ...SnapshotOption) error {
	err := saveToFile(filename, func(w io.Writer) error {
		return SaveModel(w, m, optFns...)
	})

	if m.logger != nil {
		m.logger.LogSnapshot(context.Background(), filename, err)
	}

	return err
}

// LoadModelFromFile reads a model snapshot from filename.
func LoadModelFromFile(filename string) (*Model, error) {
	var model *Model

	err := loadFromFile(filename, func(r io.Reader) error {
		var err error
		model, err = LoadModel(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	return model, nil
}

func saveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory so the rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	// Success: prevent the deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}

func loadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}

// ZSTD encoder/decoder pools shared by all snapshot operations.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Compressed payload format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// A CompressedSize of 0 means the data is stored uncompressed.
const payloadHeaderSize = 8

func compressPayload(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionNone || len(data) == 0 {
		return data, nil
	}

	var compressed []byte
	var err error

	switch compression {
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		compressed, err = compressZSTD(data)
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidSnapshot, compression)
	}

	if err != nil {
		return nil, err
	}

	// If compression doesn't help (ratio > 0.9), store uncompressed.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, payloadHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[payloadHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, payloadHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[payloadHeaderSize:], compressed)
	return result, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}

	return compressed[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

func decompressPayload(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionNone || len(data) == 0 {
		return data, nil
	}

	if len(data) < payloadHeaderSize {
		return nil, fmt.Errorf("%w: payload too small", ErrInvalidSnapshot)
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint64(len(data)) < payloadHeaderSize+uint64(uncompressedSize) {
			return nil, fmt.Errorf("%w: truncated payload", ErrInvalidSnapshot)
		}
		return data[payloadHeaderSize : payloadHeaderSize+int(uncompressedSize)], nil
	}

	if uint64(len(data)) < payloadHeaderSize+uint64(compressedSize) {
		return nil, fmt.Errorf("%w: truncated payload", ErrInvalidSnapshot)
	}

	compressedData := data[payloadHeaderSize : payloadHeaderSize+int(compressedSize)]
	result := make([]byte, uncompressedSize)

	switch compression {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(compressedData, result)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrInvalidSnapshot)
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(compressedData, result[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrInvalidSnapshot)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidSnapshot, compression)
	}
}
