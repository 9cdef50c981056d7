package stage

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/pkg/tiling"
)

// ErrTileFailed is matched by every *TileFailureError.
var ErrTileFailed = errors.New("tile jobs failed")

// TileFailure is a tile job that did not complete.
type TileFailure struct {
	Coord tiling.Coord
	Role  string
	Err   error
}

func (f TileFailure) String() string {
	if f.Role == "" {
		return fmt.Sprintf("%s: %v", f.Coord, f.Err)
	}

	return fmt.Sprintf("%s %s: %v", f.Coord, f.Role, f.Err)
}

// TileFailureError lists the tiles whose job failed. Other tiles of the run
// completed.
type TileFailureError struct {
	Failures []TileFailure
}

func (e *TileFailureError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}

	return fmt.Sprintf("%d tile jobs failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *TileFailureError) Is(target error) bool {
	return target == ErrTileFailed
}

// Coords returns the distinct coordinates of the failed tiles, in failure
// order.
func (e *TileFailureError) Coords() []tiling.Coord {
	seen := make(map[tiling.Coord]bool, len(e.Failures))
	coords := make([]tiling.Coord, 0, len(e.Failures))
	for _, f := range e.Failures {
		if !seen[f.Coord] {
			seen[f.Coord] = true
			coords = append(coords, f.Coord)
		}
	}

	return coords
}
