package tiling

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// Coord is the 1-based (column, row) address of a tile.
type Coord struct {
	X int
	Y int
}

func (c Coord) String() string {
	return fmt.Sprintf("X%d_Y%d", c.X, c.Y)
}

// Less orders coordinates row by row.
func (c Coord) Less(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}

	return c.X < o.X
}

// Grid is the partition of a Width×Height raster into tiles.
type Grid struct {
	Width   int
	Height  int
	TileW   int
	TileH   int
	Overlap int
	NX      int
	NY      int
}

// NewGrid checks the tiling parameters and computes the number of tiles on
// each axis.
func NewGrid(width, height, tileW, tileH, overlap int) (Grid, error) {
	switch {
	case width <= 0 || height <= 0:
		return Grid{}, errors.Wrapf(ErrGeometry, "raster %dx%d has no extent", width, height)
	case tileW <= 0 || tileH <= 0:
		return Grid{}, errors.Wrapf(ErrGeometry, "tile size %dx%d must be positive", tileW, tileH)
	case overlap < 0:
		return Grid{}, errors.Wrapf(ErrGeometry, "overlap %d must not be negative", overlap)
	}

	return Grid{
		Width:   width,
		Height:  height,
		TileW:   tileW,
		TileH:   tileH,
		Overlap: overlap,
		NX:      ceilDiv(width, tileW),
		NY:      ceilDiv(height, tileH),
	}, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Count returns the number of tiles.
func (g Grid) Count() int {
	return g.NX * g.NY
}

// StoredShape returns the rows and columns of every stored tile.
func (g Grid) StoredShape() (int, int) {
	return g.TileH + 2*g.Overlap, g.TileW + 2*g.Overlap
}

// Contains reports whether c addresses a tile of the grid.
func (g Grid) Contains(c Coord) bool {
	return c.X >= 1 && c.X <= g.NX && c.Y >= 1 && c.Y <= g.NY
}

// Coords returns every coordinate row by row.
func (g Grid) Coords() []Coord {
	coords := make([]Coord, 0, g.Count())
	for y := 1; y <= g.NY; y++ {
		for x := 1; x <= g.NX; x++ {
			coords = append(coords, Coord{X: x, Y: y})
		}
	}

	return coords
}

// Padding is the number of zero rows or columns added on each side of a tile.
type Padding struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// Tile is one cell of a grid.
type Tile struct {
	Coord Coord
	// Bounds is the region of the raster owned by the tile. Bounds of all the
	// tiles of a grid cover the raster without overlapping.
	Bounds image.Rectangle
	// Source is Bounds grown by the overlap and clipped to the raster.
	Source  image.Rectangle
	Overlap int
	Pad     Padding
	Rows    int
	Cols    int
}

// Tile returns the tile at c.
func (g Grid) Tile(c Coord) (Tile, error) {
	if !g.Contains(c) {
		return Tile{}, errors.Wrapf(ErrGeometry, "tile %s is outside a %dx%d grid", c, g.NX, g.NY)
	}

	raster := image.Rect(0, 0, g.Width, g.Height)
	x0, y0 := g.TileW*(c.X-1), g.TileH*(c.Y-1)
	bounds := image.Rect(x0, y0, x0+g.TileW, y0+g.TileH).Intersect(raster)
	source := image.Rect(
		bounds.Min.X-g.Overlap, bounds.Min.Y-g.Overlap,
		x0+g.TileW+g.Overlap, y0+g.TileH+g.Overlap,
	).Intersect(raster)

	rows, cols := g.StoredShape()
	pad := Padding{
		Left: g.Overlap - (bounds.Min.X - source.Min.X),
		Top:  g.Overlap - (bounds.Min.Y - source.Min.Y),
	}
	pad.Right = cols - pad.Left - source.Dx()
	pad.Bottom = rows - pad.Top - source.Dy()

	return Tile{
		Coord:   c,
		Bounds:  bounds,
		Source:  source,
		Overlap: g.Overlap,
		Pad:     pad,
		Rows:    rows,
		Cols:    cols,
	}, nil
}

// Tiles returns every tile in the enumeration order of scheme.
func (g Grid) Tiles(scheme Scheme) ([]Tile, error) {
	tiles := make([]Tile, 0, g.Count())
	for i := 0; i < g.Count(); i++ {
		c, err := scheme.Coord(i, g.NX, g.NY)
		if err != nil {
			return nil, err
		}
		t, err := g.Tile(c)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}

	return tiles, nil
}

// MaxPadding returns, per side, the largest padding of any tile.
func (g Grid) MaxPadding() Padding {
	var maxPad Padding
	for _, c := range g.Coords() {
		t, err := g.Tile(c)
		if err != nil {
			continue
		}
		maxPad.Left = max(maxPad.Left, t.Pad.Left)
		maxPad.Right = max(maxPad.Right, t.Pad.Right)
		maxPad.Top = max(maxPad.Top, t.Pad.Top)
		maxPad.Bottom = max(maxPad.Bottom, t.Pad.Bottom)
	}

	return maxPad
}
