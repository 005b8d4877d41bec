package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrirecon/internal/models"
	"mrirecon/pkg/pdrecon"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "mrirecon.yaml")

	cfg := DefaultConfig()
	cfg.Method = pdrecon.ICTGV2
	cfg.Dims = models.Dimension{Width: 64, Height: 48, Coils: 8, Frames: 20}
	cfg.Params.ICTGV2.Alpha = 0.3
	cfg.Files.KData = "data/kdata.bin"
	cfg.Processing.NumCores = 3
	cfg.Output.DebugStep = 10

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := []byte("method: tv\ndims:\n  width: 16\n  height: 16\n  coils: 4\n  frames: 2\nparams:\n  tv:\n    lambda: 0.5\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, pdrecon.TV, cfg.Method)
	assert.Equal(t, 4, cfg.Dims.Coils)
	assert.Equal(t, 0.5, cfg.Params.TV.Lambda)
	// unspecified keys keep their defaults
	assert.Equal(t, 500, cfg.Params.TV.MaxIt)
	assert.False(t, cfg.Processing.Centered)
}

func TestLoadConfigUnknownMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("method: wavelet\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dims = models.Dimension{Width: 8, Height: 8, Coils: 2, Frames: 2}
	assert.True(t, errors.Is(cfg.Validate(), ErrMissingInput))

	cfg.Files.KData = "kdata.bin"
	assert.NoError(t, cfg.Validate())

	cfg.Processing.NumCores = 0
	assert.Error(t, cfg.Validate())

	cfg.Processing.NumCores = 1
	cfg.Dims.Frames = 0
	assert.True(t, errors.Is(cfg.Validate(), models.ErrInvalidDimension))
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, pdrecon.TGV2, cfg.Method)
}
