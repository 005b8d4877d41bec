// Package dataio reads and writes the vectors a reconstruction consumes and
// produces: raw .bin vectors and BART .cfl/.hdr pairs.
//
// .bin files hold little-endian single precision values without a header:
// interleaved (real, imaginary) float32 pairs for complex vectors and plain
// float32 values for real vectors.
package dataio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrBadHeader is returned for malformed or inconsistent file headers.
	ErrBadHeader = errors.New("dataio: malformed header")

	// ErrLengthMismatch is returned when vectors disagree with the geometry.
	ErrLengthMismatch = errors.New("dataio: length mismatch")

	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("dataio: unsupported file format")
)

// ReadComplexBin reads a complex .bin vector.
func ReadComplexBin(path string) ([]complex128, error) {
	raw, err := readFloat32s(path)
	if err != nil {
		return nil, err
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: %s holds an odd number of floats", ErrBadHeader, path)
	}
	out := make([]complex128, len(raw)/2)
	for i := range out {
		out[i] = complex(float64(raw[2*i]), float64(raw[2*i+1]))
	}
	return out, nil
}

// ReadRealBin reads a real .bin vector.
func ReadRealBin(path string) ([]float64, error) {
	raw, err := readFloat32s(path)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// WriteComplexBin writes a complex .bin vector.
func WriteComplexBin(path string, data []complex128) error {
	raw := make([]float32, 2*len(data))
	for i, v := range data {
		raw[2*i] = float32(real(v))
		raw[2*i+1] = float32(imag(v))
	}
	return writeFloat32s(path, raw)
}

// WriteRealBin writes a real .bin vector.
func WriteRealBin(path string, data []float64) error {
	raw := make([]float32, len(data))
	for i, v := range data {
		raw[i] = float32(v)
	}
	return writeFloat32s(path, raw)
}

func readFloat32s(path string) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size()%4 != 0 {
		return nil, fmt.Errorf("%w: %s size %d is not a multiple of 4", ErrBadHeader, path, info.Size())
	}

	raw := make([]float32, info.Size()/4)
	if err := binary.Read(bufio.NewReader(file), binary.LittleEndian, raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, nil
}

func writeFloat32s(path string, raw []float32) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, raw); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// LoadComplex reads a complex vector from a .bin or .cfl file.
func LoadComplex(path string) ([]complex128, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin":
		return ReadComplexBin(path)
	case ".cfl", ".hdr":
		_, data, err := ReadCFL(path)
		return data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// LoadReal reads a real vector from a .bin or .cfl file (real parts).
func LoadReal(path string) ([]float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin":
		return ReadRealBin(path)
	case ".cfl", ".hdr":
		_, data, err := ReadCFL(path)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = real(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}
