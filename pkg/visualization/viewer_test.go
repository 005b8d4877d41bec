package visualization

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// frameSeries returns a series whose frame f has constant magnitude (f+1)/frames
func frameSeries(width, height, frames int) []complex128 {
	series := make([]complex128, width*height*frames)
	for f := 0; f < frames; f++ {
		value := float64(f+1) / float64(frames)
		for i := 0; i < width*height; i++ {
			series[f*width*height+i] = complex(value, 0)
		}
	}
	return series
}

func TestNewViewer(t *testing.T) {
	width, height, frames := 10, 8, 3
	series := frameSeries(width, height, frames)

	viewer, err := NewViewer(series, width, height, frames)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if viewer.width != width {
		t.Errorf("Expected width %d, got %d", width, viewer.width)
	}
	if viewer.height != height {
		t.Errorf("Expected height %d, got %d", height, viewer.height)
	}
	if viewer.Frames() != frames {
		t.Errorf("Expected %d frames, got %d", frames, viewer.Frames())
	}
	if viewer.peak != 1 {
		t.Errorf("Expected peak 1, got %f", viewer.peak)
	}

	if _, err := NewViewer(series[:10], width, height, frames); err == nil {
		t.Error("Expected error for short series, got nil")
	}
	if _, err := NewViewer(series, 0, height, frames); err == nil {
		t.Error("Expected error for zero width, got nil")
	}
}

func TestExtractFrame(t *testing.T) {
	width, height, frames := 6, 4, 4
	viewer, err := NewViewer(frameSeries(width, height, frames), width, height, frames)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	for f := 0; f < frames; f++ {
		img, err := viewer.ExtractFrame(f, Magnitude)
		if err != nil {
			t.Fatalf("Failed to extract frame %d: %v", f, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected frame dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		expected := toGray16(float64(f+1) / float64(frames))
		got := img.Gray16At(width/2, height/2).Y
		if math.Abs(float64(got)-float64(expected)) > 1 {
			t.Errorf("Expected frame %d value ~%d, got %d", f, expected, got)
		}
	}

	// Positive real values have zero phase, the middle of the gray range.
	img, err := viewer.ExtractFrame(0, Phase)
	if err != nil {
		t.Fatalf("Failed to extract phase frame: %v", err)
	}
	if got := img.Gray16At(0, 0).Y; got != toGray16(0.5) {
		t.Errorf("Expected phase value %d, got %d", toGray16(0.5), got)
	}

	if _, err := viewer.ExtractFrame(frames, Magnitude); err == nil {
		t.Error("Expected error for out of range frame, got nil")
	}
	if _, err := viewer.ExtractFrame(-1, Magnitude); err == nil {
		t.Error("Expected error for negative frame, got nil")
	}
}

func TestSaveFrameSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	width, height, frames := 5, 5, 3
	viewer, err := NewViewer(frameSeries(width, height, frames), width, height, frames)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	outputDir := filepath.Join(t.TempDir(), "frames")
	if err := viewer.SaveFrameSequence(outputDir, "recon"); err != nil {
		t.Fatalf("Failed to save frame sequence: %v", err)
	}

	for f := 0; f < frames; f++ {
		for _, kind := range []string{"mag", "phs"} {
			filename := filepath.Join(outputDir, fmt.Sprintf("recon_%sframe%03d.jpg", kind, f))
			if _, err := os.Stat(filename); os.IsNotExist(err) {
				t.Errorf("Expected frame file does not exist: %s", filename)
			}
		}
	}
}
