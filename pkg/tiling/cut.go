package tiling

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func checkRaster(src mat.Matrix, g Grid) error {
	rows, cols := src.Dims()
	if rows != g.Height || cols != g.Width {
		return errors.Wrapf(ErrGeometry, "raster is %dx%d, grid expects %dx%d", cols, rows, g.Width, g.Height)
	}

	return nil
}

// Cut copies the pixels of t out of src. The result has the stored tile shape
// and is zero where the tile extends past the raster.
func Cut(src *mat.Dense, t Tile) *mat.Dense {
	dst := mat.NewDense(t.Rows, t.Cols, nil)
	region := src.Slice(t.Source.Min.Y, t.Source.Max.Y, t.Source.Min.X, t.Source.Max.X)
	dst.Slice(t.Pad.Top, t.Pad.Top+t.Source.Dy(), t.Pad.Left, t.Pad.Left+t.Source.Dx()).(*mat.Dense).Copy(region)

	return dst
}

// Crop returns a view of the region of stored owned by t, without overlap or
// padding.
func Crop(stored mat.Matrix, t Tile) (mat.Matrix, error) {
	rows, cols := stored.Dims()
	if rows != t.Rows || cols != t.Cols {
		return nil, errors.Wrapf(ErrGeometry, "tile %s is %dx%d, expected %dx%d", t.Coord, cols, rows, t.Cols, t.Rows)
	}
	o := t.Overlap
	slicer, ok := stored.(interface {
		Slice(i, k, j, l int) mat.Matrix
	})
	if !ok {
		slicer = mat.DenseCopyOf(stored)
	}

	return slicer.Slice(o, o+t.Bounds.Dy(), o, o+t.Bounds.Dx()), nil
}

// Piece is a stored tile and its position in the grid.
type Piece struct {
	Tile Tile
	Data *mat.Dense
}

// Partition cuts src into every tile of g in the enumeration order of scheme.
func Partition(src *mat.Dense, g Grid, scheme Scheme) ([]Piece, error) {
	if err := checkRaster(src, g); err != nil {
		return nil, err
	}
	tiles, err := g.Tiles(scheme)
	if err != nil {
		return nil, err
	}
	pieces := make([]Piece, len(tiles))
	for i, t := range tiles {
		pieces[i] = Piece{Tile: t, Data: Cut(src, t)}
	}

	return pieces, nil
}
