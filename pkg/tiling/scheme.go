package tiling

import (
	"strings"

	"github.com/pkg/errors"
)

// Scheme is an enumeration order of the tiles of an nx×ny grid. Both methods
// are inverse of each other over [0, nx*ny).
type Scheme interface {
	Name() string
	Coord(index, nx, ny int) (Coord, error)
	Index(c Coord, nx, ny int) (int, error)
}

// RowMajor enumerates tiles row by row, left to right.
type RowMajor struct{}

func (RowMajor) Name() string {
	return "grid"
}

func (RowMajor) Coord(index, nx, ny int) (Coord, error) {
	if err := checkIndex(index, nx, ny); err != nil {
		return Coord{}, err
	}

	return Coord{X: index%nx + 1, Y: index/nx + 1}, nil
}

func (RowMajor) Index(c Coord, nx, ny int) (int, error) {
	if err := checkCoord(c, nx, ny); err != nil {
		return 0, err
	}

	return (c.Y-1)*nx + c.X - 1, nil
}

// Serpentine enumerates tiles row by row, reversing direction on every other
// row.
type Serpentine struct{}

func (Serpentine) Name() string {
	return "serpentine"
}

func (Serpentine) Coord(index, nx, ny int) (Coord, error) {
	if err := checkIndex(index, nx, ny); err != nil {
		return Coord{}, err
	}
	row, col := index/nx, index%nx
	if row%2 == 1 {
		col = nx - 1 - col
	}

	return Coord{X: col + 1, Y: row + 1}, nil
}

func (Serpentine) Index(c Coord, nx, ny int) (int, error) {
	if err := checkCoord(c, nx, ny); err != nil {
		return 0, err
	}
	row, col := c.Y-1, c.X-1
	if row%2 == 1 {
		col = nx - 1 - col
	}

	return row*nx + col, nil
}

func checkIndex(index, nx, ny int) error {
	if nx <= 0 || ny <= 0 {
		return errors.Wrapf(ErrGeometry, "empty %dx%d grid", nx, ny)
	}
	if index < 0 || index >= nx*ny {
		return errors.Wrapf(ErrGeometry, "index %d is outside a %dx%d grid", index, nx, ny)
	}

	return nil
}

func checkCoord(c Coord, nx, ny int) error {
	if c.X < 1 || c.X > nx || c.Y < 1 || c.Y > ny {
		return errors.Wrapf(ErrGeometry, "tile %s is outside a %dx%d grid", c, nx, ny)
	}

	return nil
}

// SchemeByName returns the scheme called name. An empty name selects RowMajor.
func SchemeByName(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "grid", "row-major", "rowmajor":
		return RowMajor{}, nil
	case "serpentine", "snake", "boustrophedon":
		return Serpentine{}, nil
	default:
		return nil, errors.Errorf("unknown tiling scheme %q", name)
	}
}
