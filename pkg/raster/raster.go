// Package raster holds single-plane helpers over gonum matrices. Rows are
// image rows, columns image columns.
package raster

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when planes of different shapes are combined.
var ErrShape = errors.New("planes have different shapes")

// Sum adds planes pixel by pixel. It is used to merge the channels selected
// for one role into the plane that gets tiled.
func Sum(planes ...mat.Matrix) (*mat.Dense, error) {
	if len(planes) == 0 {
		return nil, errors.New("no plane to sum")
	}
	rows, cols := planes[0].Dims()
	for i, p := range planes[1:] {
		r, c := p.Dims()
		if r != rows || c != cols {
			return nil, errors.Wrapf(ErrShape, "plane %d is %dx%d, plane 0 is %dx%d", i+1, c, r, cols, rows)
		}
	}

	dst := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for _, p := range planes {
		for i := 0; i < rows; i++ {
			mat.Row(row, i, p)
			floats.Add(dst.RawRowView(i), row)
		}
	}

	return dst, nil
}

// Equal reports whether a and b have the same shape and values.
func Equal(a, b mat.Matrix) bool {
	return mat.Equal(a, b)
}

// Range returns the smallest and largest value of m.
func Range(m mat.Matrix) (float64, float64) {
	rows, cols := m.Dims()
	row := make([]float64, cols)
	mat.Row(row, 0, m)
	lo, hi := row[0], row[0]
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		lo = min(lo, floats.Min(row))
		hi = max(hi, floats.Max(row))
	}

	return lo, hi
}
