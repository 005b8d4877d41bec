package dataio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mrirecon/internal/models"
)

// BART dimension indices used for Cartesian data.
const (
	cflReadDim  = 0
	cflPhase1   = 1
	cflPhase2   = 2
	cflCoilDim  = 3
	cflTimeDim  = 10
	cflMaxDims  = 16
	cflHeaderID = "# Dimensions"
)

func cflBase(path string) string {
	ext := filepath.Ext(path)
	if ext == ".cfl" || ext == ".hdr" {
		return strings.TrimSuffix(path, ext)
	}
	return path
}

// ReadCFLHeader reads the dimensions from the .hdr file belonging to path.
func ReadCFLHeader(path string) ([]int, error) {
	hdr := cflBase(path) + ".hdr"
	file, err := os.Open(hdr)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != cflHeaderID {
			continue
		}
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			break
		}
		dims := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil || v < 1 {
				return nil, fmt.Errorf("%w: %s: dimension %q", ErrBadHeader, hdr, f)
			}
			dims[i] = v
		}
		return dims, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s has no dimensions line", ErrBadHeader, hdr)
}

// ReadCFL reads a .cfl/.hdr pair. path may name either file or the common base.
func ReadCFL(path string) ([]int, []complex128, error) {
	dims, err := ReadCFLHeader(path)
	if err != nil {
		return nil, nil, err
	}
	n := 1
	for _, d := range dims {
		n *= d
	}

	data, err := ReadComplexBin(cflBase(path) + ".cfl")
	if err != nil {
		return nil, nil, err
	}
	if len(data) != n {
		return nil, nil, fmt.Errorf("%w: header announces %d values, file holds %d", ErrBadHeader, n, len(data))
	}
	return dims, data, nil
}

// WriteCFL writes data as a .cfl/.hdr pair.
func WriteCFL(path string, dims []int, data []complex128) error {
	n := 1
	for _, d := range dims {
		n *= d
	}
	if n != len(data) {
		return fmt.Errorf("%w: dimensions %v do not match %d values", ErrBadHeader, dims, len(data))
	}

	base := cflBase(path)
	if err := WriteComplexBin(base+".cfl", data); err != nil {
		return err
	}

	fields := make([]string, len(dims))
	for i, d := range dims {
		fields[i] = strconv.Itoa(d)
	}
	hdr := cflHeaderID + "\n" + strings.Join(fields, " ") + "\n"
	if err := os.WriteFile(base+".hdr", []byte(hdr), 0644); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// DimensionFromCFL maps BART dimensions onto a Dimension: read, phase and
// partition encodes give width, height and depth, dimension 3 the coils and
// dimension 10 the frames.
func DimensionFromCFL(dims []int) models.Dimension {
	at := func(i int) int {
		if i < len(dims) {
			return dims[i]
		}
		return 1
	}
	d := models.Dimension{
		Width:      at(cflReadDim),
		Height:     at(cflPhase1),
		Depth:      at(cflPhase2),
		Coils:      at(cflCoilDim),
		Frames:     at(cflTimeDim),
		Readouts:   at(cflReadDim),
		Encodings:  at(cflPhase1),
		Encodings2: at(cflPhase2),
	}
	if d.Depth == 1 {
		d.Depth = 0
	}
	return d
}

// CFLDims returns the BART dimensions of an image series.
func CFLDims(width, height, frames int) []int {
	dims := make([]int, cflMaxDims)
	for i := range dims {
		dims[i] = 1
	}
	dims[cflReadDim] = width
	dims[cflPhase1] = height
	dims[cflTimeDim] = frames
	return dims
}
