package dataio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrirecon/internal/models"
)

func TestComplexBinRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "kdata.bin")
	data := []complex128{1 + 2i, -0.5 + 0.25i, 0}

	require.NoError(t, WriteComplexBin(path, data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)*8), info.Size())

	got, err := LoadComplex(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRealBinRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.bin")
	data := []float64{0, 1, 0.5, 1}

	require.NoError(t, WriteRealBin(path, data))
	got, err := LoadReal(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadComplexBinOddLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.bin")
	require.NoError(t, WriteRealBin(path, []float64{1, 2, 3}))

	_, err := ReadComplexBin(path)
	assert.True(t, errors.Is(err, ErrBadHeader))
}

func TestCFLRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "recon")
	dims := CFLDims(2, 3, 2)
	data := make([]complex128, 12)
	for i := range data {
		data[i] = complex(float64(i), -float64(i))
	}

	require.NoError(t, WriteCFL(base+".cfl", dims, data))

	gotDims, got, err := ReadCFL(base)
	require.NoError(t, err)
	assert.Equal(t, dims, gotDims)
	assert.Equal(t, data, got)

	d := DimensionFromCFL(gotDims)
	assert.Equal(t, 2, d.Width)
	assert.Equal(t, 3, d.Height)
	assert.Equal(t, 0, d.Depth)
	assert.Equal(t, 1, d.Coils)
	assert.Equal(t, 2, d.Frames)
}

func TestCFLHeaderMismatch(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, WriteComplexBin(base+".cfl", make([]complex128, 5)))
	require.NoError(t, os.WriteFile(base+".hdr", []byte("# Dimensions\n2 2 1 1\n"), 0644))

	_, _, err := ReadCFL(base + ".hdr")
	assert.True(t, errors.Is(err, ErrBadHeader))
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := LoadComplex("data.h5")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestApplyMask(t *testing.T) {
	dims := models.Dimension{Width: 2, Height: 1, Coils: 2, Frames: 2}
	kdata := []complex128{1, 2, 3, 4, 5, 6, 7, 8}
	mask := []float64{1, 0, 0, 1}

	require.NoError(t, ApplyMask(kdata, mask, dims))
	assert.Equal(t, []complex128{1, 0, 3, 0, 0, 6, 0, 8}, kdata)

	assert.True(t, errors.Is(ApplyMask(kdata, []float64{1}, dims), ErrLengthMismatch))
	assert.NoError(t, ApplyMask(kdata, nil, dims))
}

func TestDirExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "extra")
	exp, err := NewDirExporter(dir)
	require.NoError(t, err)

	require.NoError(t, exp.ExportReal("pdgap.bin", []float64{3, 2, 1}))
	require.NoError(t, exp.ExportComplex("u.bin", []complex128{1i}))

	gap, err := ReadRealBin(filepath.Join(dir, "pdgap.bin"))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1}, gap)

	u, err := ReadComplexBin(filepath.Join(dir, "u.bin"))
	require.NoError(t, err)
	assert.Equal(t, []complex128{1i}, u)
}
