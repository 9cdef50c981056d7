package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/pkg/tilestore"
	"github.com/askiada/go-segprep/pkg/tiling"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultSettingsValid(t *testing.T) {
	t.Parallel()

	s := config.DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, "nm", s.Metadata.TargetUnit)
	assert.Positive(t, s.Tiling.Workers)

	codec, err := s.Tiling.CodecValue()
	require.NoError(t, err)
	assert.Equal(t, tilestore.Raw{Compression: tilestore.CompressionZstd}, codec, "the default codec is lossless")
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "segprep.toml", `
[tiling]
tile_width = 512
tile_height = 256
overlap = 16
scheme = "serpentine"
workers = 3
codec = "raw"
compression = "zstd"

[log]
logfile = "logs/segprep.log"
level = "debug"
`)

	s, err := config.LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 512, s.Tiling.TileWidth)
	assert.Equal(t, 256, s.Tiling.TileHeight)
	assert.Equal(t, 16, s.Tiling.Overlap)
	assert.Equal(t, 3, s.Tiling.Workers)
	assert.Equal(t, "nm", s.Metadata.TargetUnit, "missing keys keep their default")
	assert.Equal(t, filepath.Join(filepath.Dir(path), "logs", "segprep.log"), s.Log.Logfile)
	assert.Equal(t, 500, s.Log.MaxSize)

	scheme, err := s.Tiling.SchemeValue()
	require.NoError(t, err)
	assert.Equal(t, tiling.Serpentine{}, scheme)

	codec, err := s.Tiling.CodecValue()
	require.NoError(t, err)
	assert.Equal(t, tilestore.Raw{Compression: tilestore.CompressionZstd}, codec)
}

func TestLoadSettingsErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"unknown key":      "[tiling]\ntile_depth = 3\n",
		"zero tile":        "[tiling]\ntile_width = 0\n",
		"negative overlap": "[tiling]\noverlap = -1\n",
		"bad scheme":       "[tiling]\nscheme = \"spiral\"\n",
		"bad codec":        "[tiling]\ncodec = \"tif\"\ncompression = \"zstd\"\n",
		"bad unit":         "[metadata]\ntarget_unit = \"parsec\"\n",
		"bad level":        "[log]\nlevel = \"loud\"\n",
	}

	for name, content := range tcs {
		name := name
		content := content
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadSettings(writeFile(t, "segprep.toml", content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidSettings), err.Error())
		})
	}

	_, err := config.LoadSettings(writeFile(t, "broken.toml", "[tiling\n"))
	assert.Error(t, err)
}
