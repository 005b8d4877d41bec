package dataio

import (
	"fmt"
	"os"
	"path/filepath"

	"mrirecon/internal/models"
	"mrirecon/pkg/vector"
)

// ApplyMask zeroes (or weights) the unsampled k-space positions of every coil
// and frame of kdata in place. An empty mask leaves kdata unchanged.
func ApplyMask(kdata []complex128, mask []float64, dims models.Dimension) error {
	if len(mask) == 0 {
		return nil
	}
	if len(kdata) != dims.DataLen() || len(mask) != dims.SeriesLen() {
		return fmt.Errorf("%w: k-space %d (want %d), mask %d (want %d)", ErrLengthMismatch,
			len(kdata), dims.DataLen(), len(mask), dims.SeriesLen())
	}

	n := dims.ImageSize()
	for frame := 0; frame < dims.Frames; frame++ {
		offset := n * dims.Coils * frame
		m := mask[n*frame : n*(frame+1)]
		for coil := 0; coil < dims.Coils; coil++ {
			k := kdata[offset+coil*n : offset+(coil+1)*n]
			vector.MultiplyReal(k, k, m)
		}
	}
	return nil
}

// DirExporter writes named vectors as .bin files into a directory.
type DirExporter struct {
	Dir string
}

// NewDirExporter creates the directory if needed.
func NewDirExporter(dir string) (*DirExporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &DirExporter{Dir: dir}, nil
}

// ExportReal writes a real vector to Dir/name.
func (e *DirExporter) ExportReal(name string, data []float64) error {
	return WriteRealBin(filepath.Join(e.Dir, name), data)
}

// ExportComplex writes a complex vector to Dir/name.
func (e *DirExporter) ExportComplex(name string, data []complex128) error {
	return WriteComplexBin(filepath.Join(e.Dir, name), data)
}
