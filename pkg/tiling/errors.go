package tiling

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrGeometry is returned for non-positive tile sizes, a negative overlap,
	// an empty raster or a tile outside its grid.
	ErrGeometry = errors.New("tiling geometry error")
	// ErrReassemblyGap is returned when an expected tile is missing.
	ErrReassemblyGap = errors.New("reassembly gap")
)

// GapError lists the coordinates without a tile.
type GapError struct {
	Missing []Coord
}

func (e *GapError) Error() string {
	coords := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		coords[i] = c.String()
	}

	return fmt.Sprintf("%s: %d missing tiles: %s", ErrReassemblyGap, len(e.Missing), strings.Join(coords, ", "))
}

func (e *GapError) Is(target error) bool {
	return target == ErrReassemblyGap
}
