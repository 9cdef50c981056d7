package raster_test

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/pkg/raster"
)

func TestSum(t *testing.T) {
	t.Parallel()

	a := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := mat.NewDense(2, 3, []float64{10, 20, 30, 40, 50, 60})
	view := mat.NewDense(4, 4, []float64{
		0, 0, 0, 0,
		0, 1, 1, 1,
		0, 2, 2, 2,
		0, 0, 0, 0,
	}).Slice(1, 3, 1, 4)

	got, err := raster.Sum(a, b, view)
	require.NoError(t, err)
	assert.True(t, raster.Equal(mat.NewDense(2, 3, []float64{12, 23, 34, 46, 57, 68}), got))

	single, err := raster.Sum(a)
	require.NoError(t, err)
	assert.True(t, raster.Equal(a, single))
	single.Set(0, 0, 99)
	assert.Equal(t, 1.0, a.At(0, 0), "sum must not alias its input")
}

func TestSumErrors(t *testing.T) {
	t.Parallel()

	_, err := raster.Sum()
	require.Error(t, err)

	_, err = raster.Sum(mat.NewDense(2, 2, nil), mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, raster.ErrShape)
}

func TestRange(t *testing.T) {
	t.Parallel()

	lo, hi := raster.Range(mat.NewDense(2, 2, []float64{3, -1, 7, 2}))
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)
}

func TestTIFFRoundTrip(t *testing.T) {
	t.Parallel()

	tcs := map[string]tiff.CompressionType{
		"uncompressed": tiff.Uncompressed,
		"deflate":      tiff.Deflate,
	}

	for name, compression := range tcs {
		name := name
		compression := compression
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := mat.NewDense(3, 4, []float64{
				0, 1, 2, 3,
				1000, 20000, 65535, 42,
				7, 8, 9, 10,
			})
			var buf bytes.Buffer
			require.NoError(t, raster.WriteTIFF(&buf, src, compression))

			got, err := raster.ReadTIFF(&buf)
			require.NoError(t, err)
			assert.True(t, raster.Equal(src, got))
		})
	}
}

func TestToGray16(t *testing.T) {
	t.Parallel()

	img, err := raster.ToGray16(mat.NewDense(1, 3, []float64{0, 1234, 65535}))
	require.NoError(t, err)
	for x, want := range []uint16{0, 1234, 65535} {
		assert.Equal(t, want, img.Gray16At(x, 0).Y)
	}
}

func TestWriteTIFFRejectsUnrepresentable(t *testing.T) {
	t.Parallel()

	tcs := map[string]float64{
		"negative":   -3,
		"fraction":   1.4,
		"above 16 b": 70000,
		"label":      131072,
		"nan":        math.NaN(),
		"inf":        math.Inf(1),
	}

	for name, v := range tcs {
		name := name
		v := v
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			err := raster.WriteTIFF(&buf, mat.NewDense(1, 2, []float64{7, v}), tiff.Uncompressed)
			require.ErrorIs(t, err, raster.ErrUnrepresentable)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestFromImage8Bit(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(5, 5, 7, 6))
	img.SetGray(5, 5, color.Gray{Y: 12})
	img.SetGray(6, 5, color.Gray{Y: 255})

	got, err := raster.FromImage(img)
	require.NoError(t, err)
	assert.True(t, raster.Equal(mat.NewDense(1, 2, []float64{12, 255}), got))
}

func TestReadTIFFRejectsColour(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))

	_, err := raster.ReadTIFF(&buf)
	assert.ErrorIs(t, err, raster.ErrUnsupportedImage)
}

func TestReadTIFFInvalid(t *testing.T) {
	t.Parallel()

	_, err := raster.ReadTIFF(bytes.NewReader([]byte("not a tiff")))
	assert.Error(t, err)
}
