package reconstruction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrirecon/internal/models"
	"mrirecon/pkg/config"
	"mrirecon/pkg/dataio"
	"mrirecon/pkg/operator"
	"mrirecon/pkg/pdrecon"
	"mrirecon/pkg/vector"
)

// square is a bright block on a dim background, moving one pixel per frame.
func square(d models.Dimension) []complex128 {
	x := make([]complex128, d.SeriesLen())
	for f := 0; f < d.Frames; f++ {
		for y := 0; y < d.Height; y++ {
			for xx := 0; xx < d.Width; xx++ {
				v := complex(0.2, 0)
				if y >= 2 && y < 5 && xx >= 2+f && xx < 5+f {
					v = 1
				}
				x[f*d.ImageSize()+y*d.Width+xx] = v
			}
		}
	}
	return x
}

// writeDataset simulates single-coil k-space of the square phantom and
// returns a configuration pointing at it.
func writeDataset(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	dims := models.Dimension{Width: 8, Height: 8, Coils: 1, Frames: 2}
	cfg := config.DefaultConfig()
	cfg.Dims = dims

	op, err := operator.NewCartesianCentering(dims.Width, dims.Height, dims.Coils, dims.Frames, nil, cfg.Processing.Centered)
	require.NoError(t, err)
	defer op.Close()

	truth := square(dims)
	kdata, err := op.Backward(truth, vector.Ones(dims.SensitivityLen()))
	require.NoError(t, err)

	cfg.Method = pdrecon.TV
	cfg.Params.TV.MaxIt = 150
	cfg.Params.TV.Lambda = 100
	cfg.Processing.NumCores = 2
	cfg.Output.Verbose = false

	cfg.Files.KData = filepath.Join(dir, "kdata.bin")
	cfg.Files.Reference = filepath.Join(dir, "truth.bin")
	cfg.Files.Output = filepath.Join(dir, "out", "recon.bin")
	require.NoError(t, dataio.WriteComplexBin(cfg.Files.KData, kdata))
	require.NoError(t, dataio.WriteComplexBin(cfg.Files.Reference, truth))
	return cfg
}

func TestProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping reconstruction run in short mode")
	}

	cfg := writeDataset(t)
	cfg.Output.DebugStep = 50
	cfg.Output.ExtraData = filepath.Join(filepath.Dir(cfg.Files.Output), "extra")

	r := NewReconstructor(cfg)
	require.NoError(t, r.Process())

	assert.Len(t, r.Result(), cfg.Dims.SeriesLen())
	assert.Greater(t, r.Elapsed().Nanoseconds(), int64(0))

	out, err := dataio.LoadComplex(cfg.Files.Output)
	require.NoError(t, err)
	assert.Len(t, out, cfg.Dims.SeriesLen())

	gap, err := dataio.ReadRealBin(filepath.Join(cfg.Output.ExtraData, "pdgap.bin"))
	require.NoError(t, err)
	assert.Len(t, gap, 3)

	m, ok := r.Metrics()
	require.True(t, ok)
	assert.Less(t, m.NRMSE, 0.5)
}

func TestProcessWithMaskAndInitialGuess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping reconstruction run in short mode")
	}

	cfg := writeDataset(t)
	dir := filepath.Dir(cfg.Files.KData)
	dims := cfg.Dims

	// one mask image for all frames, every other phase encoding line
	mask := make([]float64, dims.ImageSize())
	for y := 0; y < dims.Height; y += 2 {
		for x := 0; x < dims.Width; x++ {
			mask[y*dims.Width+x] = 1
		}
	}
	cfg.Files.Mask = filepath.Join(dir, "mask.bin")
	require.NoError(t, dataio.WriteRealBin(cfg.Files.Mask, mask))

	u0 := make([]complex128, dims.ImageSize())
	vector.Fill(u0, 0.2)
	cfg.Files.U0 = filepath.Join(dir, "u0.bin")
	require.NoError(t, dataio.WriteComplexBin(cfg.Files.U0, u0))

	cfg.Params.TV.MaxIt = 20
	cfg.Files.Output = filepath.Join(dir, "frames")

	r := NewReconstructor(cfg)
	require.NoError(t, r.Process())

	for f := 0; f < dims.Frames; f++ {
		for _, kind := range []string{"mag", "phs"} {
			filename := filepath.Join(cfg.Files.Output, fmt.Sprintf("recon_%sframe%03d.jpg", kind, f))
			_, err := os.Stat(filename)
			assert.NoError(t, err, filename)
		}
	}
}

func TestProcessDimsFromCFLHeader(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping reconstruction run in short mode")
	}

	cfg := writeDataset(t)
	want := cfg.Dims
	kdata, err := dataio.LoadComplex(cfg.Files.KData)
	require.NoError(t, err)

	cfg.Files.KData = filepath.Join(filepath.Dir(cfg.Files.KData), "kdata.cfl")
	require.NoError(t, dataio.WriteCFL(cfg.Files.KData, dataio.CFLDims(want.Width, want.Height, want.Frames), kdata))
	cfg.Dims = models.Dimension{}
	cfg.Params.TV.MaxIt = 20

	r := NewReconstructor(cfg)
	require.NoError(t, r.Process())

	assert.Equal(t, want.Width, cfg.Dims.Width)
	assert.Equal(t, want.Height, cfg.Dims.Height)
	assert.Equal(t, 1, cfg.Dims.Coils)
	assert.Equal(t, want.Frames, cfg.Dims.Frames)
	assert.Len(t, r.Result(), want.SeriesLen())

	// configured geometry wins over the header
	cfg.Dims = models.Dimension{Width: 4, Height: 4, Coils: 1, Frames: 2}
	err = NewReconstructor(cfg).Process()
	assert.True(t, errors.Is(err, dataio.ErrLengthMismatch), "got %v", err)
}

func TestProcessRejectsUnsupported(t *testing.T) {
	cfg := writeDataset(t)
	cfg.Method = pdrecon.TGV2_3D
	err := NewReconstructor(cfg).Process()
	assert.True(t, errors.Is(err, pdrecon.ErrNotSupported), "got %v", err)

	// several coils need sensitivity maps
	cfg = writeDataset(t)
	cfg.Dims.Coils = 2
	kdata := make([]complex128, cfg.Dims.DataLen())
	require.NoError(t, dataio.WriteComplexBin(cfg.Files.KData, kdata))
	err = NewReconstructor(cfg).Process()
	assert.True(t, errors.Is(err, pdrecon.ErrNotSupported), "got %v", err)
}

func TestProcessInputErrors(t *testing.T) {
	cfg := writeDataset(t)
	cfg.Dims.Width = 4
	err := NewReconstructor(cfg).Process()
	assert.True(t, errors.Is(err, dataio.ErrLengthMismatch), "got %v", err)

	cfg = writeDataset(t)
	cfg.Files.KData = filepath.Join(t.TempDir(), "missing.bin")
	assert.Error(t, NewReconstructor(cfg).Process())

	cfg = writeDataset(t)
	cfg.Files.KData = ""
	assert.True(t, errors.Is(NewReconstructor(cfg).Process(), config.ErrMissingInput))

	cfg = writeDataset(t)
	cfg.Files.Output = filepath.Join(t.TempDir(), "recon.png")
	assert.True(t, errors.Is(NewReconstructor(cfg).Process(), dataio.ErrUnsupportedFormat))
}

func TestWriteOutputCFL(t *testing.T) {
	dims := models.Dimension{Width: 3, Height: 2, Coils: 1, Frames: 2}
	x := make([]complex128, dims.SeriesLen())
	for i := range x {
		x[i] = complex(float64(i), 0.5)
	}
	path := filepath.Join(t.TempDir(), "recon.cfl")

	require.NoError(t, WriteOutput(path, x, dims))

	cflDims, data, err := dataio.ReadCFL(path)
	require.NoError(t, err)
	assert.Equal(t, x, data)
	got := dataio.DimensionFromCFL(cflDims)
	assert.Equal(t, dims.Width, got.Width)
	assert.Equal(t, dims.Frames, got.Frames)
}
