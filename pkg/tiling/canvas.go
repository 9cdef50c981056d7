package tiling

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Canvas reassembles a raster from its tiles. Tiles may be placed in any
// order and from several goroutines.
type Canvas struct {
	grid   Grid
	raster *mat.Dense

	mu     sync.Mutex
	placed map[Coord]bool
}

// NewCanvas returns an empty canvas for g.
func NewCanvas(g Grid) *Canvas {
	return &Canvas{
		grid:   g,
		raster: mat.NewDense(g.Height, g.Width, nil),
		placed: make(map[Coord]bool, g.Count()),
	}
}

// Place strips the overlap and padding of the tile stored at c and copies
// the rest at its position in the raster.
func (cv *Canvas) Place(c Coord, stored mat.Matrix) error {
	t, err := cv.grid.Tile(c)
	if err != nil {
		return err
	}
	region, err := Crop(stored, t)
	if err != nil {
		return err
	}

	// tiles own disjoint regions of the raster
	dst := cv.raster.Slice(t.Bounds.Min.Y, t.Bounds.Max.Y, t.Bounds.Min.X, t.Bounds.Max.X).(*mat.Dense)
	dst.Copy(region)

	cv.mu.Lock()
	cv.placed[c] = true
	cv.mu.Unlock()

	return nil
}

// Missing returns, row by row, the coordinates not placed yet.
func (cv *Canvas) Missing() []Coord {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	var missing []Coord
	for _, c := range cv.grid.Coords() {
		if !cv.placed[c] {
			missing = append(missing, c)
		}
	}

	return missing
}

// Raster returns the reassembled raster, or a *GapError when a tile was
// never placed.
func (cv *Canvas) Raster() (*mat.Dense, error) {
	if missing := cv.Missing(); len(missing) > 0 {
		return nil, &GapError{Missing: missing}
	}

	return cv.raster, nil
}

// Reassemble places every tile of tiles on a canvas for g.
func Reassemble(g Grid, tiles map[Coord]*mat.Dense) (*mat.Dense, error) {
	coords := make([]Coord, 0, len(tiles))
	for c := range tiles {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })

	canvas := NewCanvas(g)
	for _, c := range coords {
		if err := canvas.Place(c, tiles[c]); err != nil {
			return nil, errors.Wrapf(err, "unable to place tile %s", c)
		}
	}

	return canvas.Raster()
}
