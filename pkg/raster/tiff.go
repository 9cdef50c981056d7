package raster

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"
)

// ErrUnsupportedImage is returned for images that are not 8 or 16-bit grey.
var ErrUnsupportedImage = errors.New("image is not 8 or 16-bit grey")

// FromImage converts a grey image to a plane. Other pixel formats would lose
// values and are rejected.
func FromImage(img image.Image) (*mat.Dense, error) {
	b := img.Bounds()
	dst := mat.NewDense(b.Dy(), b.Dx(), nil)
	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				dst.Set(y, x, float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				dst.Set(y, x, float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedImage, "%T", img)
	}

	return dst, nil
}

// ErrUnrepresentable is returned when a value is not a 16-bit grey level.
var ErrUnrepresentable = errors.New("value is not a 16-bit grey level")

// ToGray16 converts m to a 16-bit grey image. Every value must be an integer
// in [0, 65535].
func ToGray16(m mat.Matrix) (*image.Gray16, error) {
	rows, cols := m.Dims()
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := m.At(y, x)
			if !isGray16(v) {
				return nil, errors.Wrapf(ErrUnrepresentable, "%v at row %d column %d", v, y, x)
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}

	return img, nil
}

func isGray16(v float64) bool {
	return v >= 0 && v <= math.MaxUint16 && v == math.Trunc(v)
}

// ReadTIFF decodes the first page of an 8 or 16-bit grey TIFF image.
func ReadTIFF(r io.Reader) (*mat.Dense, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode TIFF")
	}
	if img.Bounds().Empty() {
		return nil, errors.New("empty TIFF image")
	}

	return FromImage(img)
}

// WriteTIFF encodes m as a 16-bit grey TIFF image. It fails with
// ErrUnrepresentable before writing anything when m holds a value ToGray16
// rejects.
func WriteTIFF(w io.Writer, m mat.Matrix, compression tiff.CompressionType) error {
	img, err := ToGray16(m)
	if err != nil {
		return err
	}
	err = tiff.Encode(w, img, &tiff.Options{Compression: compression})
	if err != nil {
		return errors.Wrap(err, "unable to encode TIFF")
	}

	return nil
}
