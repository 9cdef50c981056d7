// Package tilestore persists tiles on disk, one file per tile.
package tilestore

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/pkg/raster"
)

// Codec encodes a single tile.
type Codec interface {
	// Ext is the file extension of encoded tiles, without the dot.
	Ext() string
	Encode(w io.Writer, m mat.Matrix) error
	Decode(r io.Reader) (*mat.Dense, error)
}

// TIFF stores tiles as 16-bit grey TIFF images. Encode fails with
// raster.ErrUnrepresentable on values that are not integers in [0, 65535].
type TIFF struct {
	Compression tiff.CompressionType
}

func (TIFF) Ext() string {
	return "tif"
}

func (c TIFF) Encode(w io.Writer, m mat.Matrix) error {
	return raster.WriteTIFF(w, m, c.Compression)
}

func (TIFF) Decode(r io.Reader) (*mat.Dense, error) {
	return raster.ReadTIFF(r)
}

// CodecByName returns the codec called name using compression. Supported
// pairs are tiff with none or deflate, and raw with none, lz4 or zstd. An empty
// name selects raw.
func CodecByName(name, compression string) (Codec, error) {
	compression = strings.ToLower(strings.TrimSpace(compression))
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tif", "tiff":
		switch compression {
		case "", CompressionNone:
			return TIFF{Compression: tiff.Uncompressed}, nil
		case "deflate":
			return TIFF{Compression: tiff.Deflate}, nil
		}
	case "", "raw", "tile":
		switch compression {
		case "":
			return Raw{Compression: CompressionNone}, nil
		case CompressionNone, CompressionLZ4, CompressionZstd:
			return Raw{Compression: compression}, nil
		}
	default:
		return nil, errors.Errorf("unknown tile codec %q", name)
	}

	return nil, errors.Errorf("codec %q does not support %q compression", name, compression)
}
