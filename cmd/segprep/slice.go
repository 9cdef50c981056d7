package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/pkg/raster"
	"github.com/askiada/go-segprep/pkg/stage"
	"github.com/askiada/go-segprep/pkg/tilestore"
	"github.com/askiada/go-segprep/pkg/tiling"
)

func runSlice(ctx context.Context, args []string) error {
	var (
		common     commonFlags
		planes     []string
		region     int
		outDir     string
		configPath string
		graphFile  string
	)

	fs := pflag.NewFlagSet("segprep slice", pflag.ContinueOnError)
	common.add(fs)
	fs.StringArrayVar(&planes, "plane", nil, "role=path of a single-plane TIFF; repeat it, planes of one role are summed")
	fs.IntVar(&region, "region", 1, "region number used in tile names")
	fs.StringVar(&outDir, "out", "", "tile directory (required)")
	fs.StringVar(&configPath, "config", "", "pipeline configuration receiving the slicer section")
	fs.StringVar(&graphFile, "graph", "", "write a DOT graph of the run to this file")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if outDir == "" || len(planes) == 0 {
		return errors.New("--out and at least one --plane are required")
	}

	settings, logger, closer, err := common.load()
	if err != nil {
		return err
	}
	defer closer.Close()

	roles, err := readPlanes(planes)
	if err != nil {
		return err
	}
	rows, cols := roles[0].Planes[0].Dims()
	grid, err := tiling.NewGrid(cols, rows, settings.Tiling.TileWidth, settings.Tiling.TileHeight, settings.Tiling.Overlap)
	if err != nil {
		return err
	}
	scheme, err := settings.Tiling.SchemeValue()
	if err != nil {
		return err
	}
	codec, err := settings.Tiling.CodecValue()
	if err != nil {
		return err
	}

	report, err := stage.Partition(ctx, tilestore.New(outDir, codec), stage.PartitionJob{
		Region: region,
		Grid:   grid,
		Scheme: scheme,
		Roles:  roles,
	}, stage.Options{
		Workers:   settings.Tiling.Workers,
		Logger:    logger,
		GraphFile: graphFile,
	})
	if err != nil {
		return err
	}

	if configPath == "" {
		return nil
	}
	doc := &config.Document{}
	if _, statErr := os.Stat(configPath); statErr == nil {
		doc, err = config.ReadDocument(configPath)
		if err != nil {
			return err
		}
	}
	doc.Slicer = &report.Slicer

	return config.WriteDocument(configPath, doc)
}

// readPlanes groups role=path arguments by role, keeping the order in which
// roles first appear.
func readPlanes(args []string) ([]stage.RolePlanes, error) {
	var roles []stage.RolePlanes
	position := make(map[string]int)
	for _, arg := range args {
		role, path, ok := strings.Cut(arg, "=")
		if !ok || role == "" || path == "" {
			return nil, errors.Errorf("invalid plane %q, expected role=path", arg)
		}
		m, err := readTIFF(path)
		if err != nil {
			return nil, err
		}
		i, seen := position[role]
		if !seen {
			i = len(roles)
			position[role] = i
			roles = append(roles, stage.RolePlanes{Role: role})
		}
		roles[i].Planes = append(roles[i].Planes, m)
	}

	return roles, nil
}

func readTIFF(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open plane")
	}
	defer f.Close()

	m, err := raster.ReadTIFF(f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	return m, nil
}
