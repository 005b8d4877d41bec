package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"mrirecon/pkg/vector"
)

// Mode selects which component of a complex frame is rendered.
type Mode int

const (
	// Magnitude renders |x| scaled by the series maximum
	Magnitude Mode = iota

	// Phase renders arg(x) mapped from [-π, π] to the full gray range
	Phase
)

func (m Mode) suffix() string {
	if m == Phase {
		return "phs"
	}
	return "mag"
}

// Viewer renders the frames of a reconstructed image series. Frames are
// stored one after another, each row-major with width columns.
type Viewer struct {
	series []complex128

	width  int
	height int
	frames int

	// peak is the largest magnitude in the series
	peak float64
}

// NewViewer creates a viewer over a series of frames.
func NewViewer(series []complex128, width, height, frames int) (*Viewer, error) {
	if width <= 0 || height <= 0 || frames <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d, %d frames", width, height, frames)
	}
	if len(series) != width*height*frames {
		return nil, fmt.Errorf("series length %d does not match %dx%dx%d", len(series), width, height, frames)
	}

	return &Viewer{
		series: series,
		width:  width,
		height: height,
		frames: frames,
		peak:   floats.Max(vector.Abs(series)),
	}, nil
}

// Frames returns the number of frames in the series.
func (v *Viewer) Frames() int {
	return v.frames
}

// ExtractFrame renders a single frame as a 16-bit grayscale image.
func (v *Viewer) ExtractFrame(frame int, mode Mode) (*image.Gray16, error) {
	if frame < 0 || frame >= v.frames {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", frame, v.frames)
	}

	n := v.width * v.height
	data := v.series[frame*n : (frame+1)*n]

	var values []float64
	switch mode {
	case Phase:
		values = vector.Phase(data)
		floats.AddConst(math.Pi, values)
		floats.Scale(1/(2*math.Pi), values)
	default:
		values = vector.Abs(data)
		if v.peak > 0 {
			floats.Scale(1/v.peak, values)
		}
	}

	img := image.NewGray16(image.Rect(0, 0, v.width, v.height))
	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: toGray16(values[y*v.width+x])})
		}
	}
	return img, nil
}

func toGray16(value float64) uint16 {
	return uint16(math.Max(0, math.Min(65535, math.Round(value*65535))))
}

// SaveFrame writes an image as a JPEG file.
func (v *Viewer) SaveFrame(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveFrameSequence writes every frame as <name>_magframeNNN.jpg and
// <name>_phsframeNNN.jpg into outputDir.
func (v *Viewer) SaveFrameSequence(outputDir, name string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for frame := 0; frame < v.frames; frame++ {
		for _, mode := range []Mode{Magnitude, Phase} {
			img, err := v.ExtractFrame(frame, mode)
			if err != nil {
				return err
			}

			filename := filepath.Join(outputDir, fmt.Sprintf("%s_%sframe%03d.jpg", name, mode.suffix(), frame))
			if err := v.SaveFrame(img, filename); err != nil {
				return err
			}
		}
	}
	return nil
}
