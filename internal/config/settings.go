// Package config holds the stage settings and the pipeline configuration
// document shared with the rest of the processing pipeline.
package config

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/internal/logging"
	"github.com/askiada/go-segprep/pkg/tilestore"
	"github.com/askiada/go-segprep/pkg/tiling"
	"github.com/askiada/go-segprep/pkg/units"
)

// ErrInvalidSettings is returned when settings fail validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the TOML settings file of the stage.
type Settings struct {
	Tiling   TilingSettings   `toml:"tiling"`
	Metadata MetadataSettings `toml:"metadata"`
	Log      logging.Config   `toml:"log"`
}

// TilingSettings drives partition and reassembly.
type TilingSettings struct {
	TileWidth  int    `toml:"tile_width"`
	TileHeight int    `toml:"tile_height"`
	Overlap    int    `toml:"overlap"`
	Scheme     string `toml:"scheme"`
	// Workers bounds the number of tiles processed concurrently.
	Workers     int    `toml:"workers"`
	Codec       string `toml:"codec"`
	Compression string `toml:"compression"`
}

type MetadataSettings struct {
	TargetUnit string `toml:"target_unit"`
}

// DefaultSettings returns the settings used for any key missing from the
// settings file.
func DefaultSettings() Settings {
	return Settings{
		Tiling: TilingSettings{
			TileWidth:   1000,
			TileHeight:  1000,
			Overlap:     100,
			Scheme:      tiling.RowMajor{}.Name(),
			Workers:     runtime.NumCPU(),
			Codec:       "raw",
			Compression: tilestore.CompressionZstd,
		},
		Metadata: MetadataSettings{
			TargetUnit: units.Nanometre,
		},
		Log: logging.Config{
			MaxSize: 500,
			MaxAge:  30,
			Level:   "info",
			Format:  "text",
		},
	}
}

// LoadSettings decodes the TOML file at path over the defaults. A relative
// log file is resolved against the directory of the settings file.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return s, errors.Wrap(err, "could not decode TOML settings")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return s, errors.Wrapf(ErrInvalidSettings, "unknown keys %s", strings.Join(keys, ", "))
	}
	if s.Log.Logfile != "" && !filepath.IsAbs(s.Log.Logfile) {
		s.Log.Logfile = filepath.Join(filepath.Dir(path), s.Log.Logfile)
	}

	return s, s.Validate()
}

// Validate checks the settings can build a grid, a scheme and a codec.
func (s Settings) Validate() error {
	t := s.Tiling
	if t.TileWidth <= 0 || t.TileHeight <= 0 {
		return errors.Wrapf(ErrInvalidSettings, "tile size %dx%d must be positive", t.TileWidth, t.TileHeight)
	}
	if t.Overlap < 0 {
		return errors.Wrapf(ErrInvalidSettings, "overlap %d must not be negative", t.Overlap)
	}
	if t.Workers <= 0 {
		return errors.Wrapf(ErrInvalidSettings, "workers %d must be positive", t.Workers)
	}
	if _, err := tiling.SchemeByName(t.Scheme); err != nil {
		return errors.Wrap(ErrInvalidSettings, err.Error())
	}
	if _, err := tilestore.CodecByName(t.Codec, t.Compression); err != nil {
		return errors.Wrap(ErrInvalidSettings, err.Error())
	}
	if !units.Known(s.Metadata.TargetUnit) {
		return errors.Wrapf(ErrInvalidSettings, "unknown target unit %q", s.Metadata.TargetUnit)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return errors.Wrap(ErrInvalidSettings, err.Error())
	}

	return nil
}

// SchemeValue returns the enumeration scheme named by the settings.
func (t TilingSettings) SchemeValue() (tiling.Scheme, error) {
	return tiling.SchemeByName(t.Scheme)
}

// CodecValue returns the tile codec named by the settings.
func (t TilingSettings) CodecValue() (tilestore.Codec, error) {
	return tilestore.CodecByName(t.Codec, t.Compression)
}
