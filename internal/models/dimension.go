package models

import (
	"errors"
	"fmt"
)

// ErrInvalidDimension is returned when a geometry cannot describe a reconstruction.
var ErrInvalidDimension = errors.New("models: invalid dimension")

// Dimension describes the image and measurement geometry of a reconstruction.
// It is a plain value: every component receives a copy and none of them
// changes it after construction.
type Dimension struct {
	// Width and Height are the in-plane image size in pixels
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Depth is the number of partitions for volumetric data (0 for 2-D+t)
	Depth int `yaml:"depth"`

	// Coils is the number of receiver channels
	Coils int `yaml:"coils"`

	// Frames is the number of temporal frames
	Frames int `yaml:"frames"`

	// Readouts, Encodings and Encodings2 describe the raw acquisition
	// (samples per readout and phase encoding steps). They are carried
	// along for the raw-data path and do not affect Cartesian operators.
	Readouts   int `yaml:"readouts"`
	Encodings  int `yaml:"encodings"`
	Encodings2 int `yaml:"encodings2"`
}

// ImageSize is the number of pixels of one 2-D image.
func (d Dimension) ImageSize() int {
	return d.Width * d.Height
}

// SeriesLen is the length of an image series vector (width·height·frames).
func (d Dimension) SeriesLen() int {
	return d.Width * d.Height * d.Frames
}

// DataLen is the length of a multi-coil k-space vector (width·height·coils·frames).
func (d Dimension) DataLen() int {
	return d.Width * d.Height * d.Coils * d.Frames
}

// SensitivityLen is the length of a coil sensitivity map (width·height·coils).
func (d Dimension) SensitivityLen() int {
	return d.Width * d.Height * d.Coils
}

// Validate2D checks that the geometry describes a 2-D time-resolved
// reconstruction: width, height, coils and frames must all be positive.
func (d Dimension) Validate2D() error {
	if d.Width <= 0 || d.Height <= 0 || d.Coils <= 0 || d.Frames <= 0 {
		return fmt.Errorf("%w: width=%d height=%d coils=%d frames=%d",
			ErrInvalidDimension, d.Width, d.Height, d.Coils, d.Frames)
	}
	if d.Depth < 0 || d.Readouts < 0 || d.Encodings < 0 || d.Encodings2 < 0 {
		return fmt.Errorf("%w: negative acquisition size", ErrInvalidDimension)
	}
	return nil
}

func (d Dimension) String() string {
	return fmt.Sprintf("%dx%dx%d, %d coils, %d frames", d.Width, d.Height, d.Depth, d.Coils, d.Frames)
}
