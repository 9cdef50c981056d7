package tiling

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrTileName is returned for a file name not following the tile naming
// scheme.
var ErrTileName = errors.New("invalid tile name")

// TileName identifies one stored tile.
type TileName struct {
	Region int
	Coord  Coord
	Role   string
	Ext    string
}

// String returns R{region}_X{x}_Y{y}_{role}.{ext}.
func (n TileName) String() string {
	return Name(n.Region, n.Coord, n.Role, n.Ext)
}

// Name returns the file name of the tile of role at c in region.
func Name(region int, c Coord, role, ext string) string {
	return fmt.Sprintf("R%d_X%d_Y%d_%s.%s", region, c.X, c.Y, role, strings.TrimPrefix(ext, "."))
}

// TileDir returns the directory of the tiles at c in region.
func TileDir(region int, c Coord) string {
	return fmt.Sprintf("R%d_X%d_Y%d", region, c.X, c.Y)
}

// RegionDir returns the directory of a region.
func RegionDir(region int) string {
	return fmt.Sprintf("region_%03d", region)
}

var tileNameRe = regexp.MustCompile(`^R(\d+)_X(\d+)_Y(\d+)_(.+)\.([^.]+)$`)

// ParseName is the inverse of Name.
func ParseName(name string) (TileName, error) {
	m := tileNameRe.FindStringSubmatch(name)
	if m == nil {
		return TileName{}, errors.Wrapf(ErrTileName, "%q", name)
	}
	values := make([]int, 3)
	for i := range values {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return TileName{}, errors.Wrapf(ErrTileName, "%q: %v", name, err)
		}
		values[i] = v
	}
	if values[1] < 1 || values[2] < 1 {
		return TileName{}, errors.Wrapf(ErrTileName, "%q: grid coordinates start at 1", name)
	}

	return TileName{
		Region: values[0],
		Coord:  Coord{X: values[1], Y: values[2]},
		Role:   m[4],
		Ext:    m[5],
	}, nil
}
