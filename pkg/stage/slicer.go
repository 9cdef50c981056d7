package stage

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/pkg/tiling"
)

// SlicerInfo describes g for the slicer section of the pipeline
// configuration.
func SlicerInfo(g tiling.Grid) config.Slicer {
	pad := g.MaxPadding()

	return config.Slicer{
		Scheme:     tiling.RowMajor{}.Name(),
		TileWidth:  g.TileW,
		TileHeight: g.TileH,
		Overlap:    g.Overlap,
		Padding: config.Padding{
			Left:   pad.Left,
			Right:  pad.Right,
			Top:    pad.Top,
			Bottom: pad.Bottom,
		},
		ImageWidth:  g.Width,
		ImageHeight: g.Height,
		NX:          g.NX,
		NY:          g.NY,
		NumTiles:    g.Count(),
	}
}

// GridFromSlicer rebuilds the grid described by a slicer section. The tile
// counts must agree with the image and tile shapes.
func GridFromSlicer(s config.Slicer) (tiling.Grid, error) {
	g, err := tiling.NewGrid(s.ImageWidth, s.ImageHeight, s.TileWidth, s.TileHeight, s.Overlap)
	if err != nil {
		return tiling.Grid{}, err
	}
	if (s.NX != 0 && s.NX != g.NX) || (s.NY != 0 && s.NY != g.NY) || (s.NumTiles != 0 && s.NumTiles != g.Count()) {
		return tiling.Grid{}, errors.Wrapf(tiling.ErrGeometry, "slicer declares %dx%d tiles, shapes give %dx%d",
			s.NX, s.NY, g.NX, g.NY)
	}

	return g, nil
}
