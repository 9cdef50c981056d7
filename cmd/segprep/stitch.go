package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/pkg/stage"
	"github.com/askiada/go-segprep/pkg/tilestore"
)

func runStitch(ctx context.Context, args []string) error {
	var (
		common     commonFlags
		tilesDir   string
		configPath string
		region     int
		role       string
		outPath    string
		format     string
		graphFile  string
	)

	fs := pflag.NewFlagSet("segprep stitch", pflag.ContinueOnError)
	common.add(fs)
	fs.StringVar(&tilesDir, "tiles", "", "tile directory (required)")
	fs.StringVar(&configPath, "config", "", "pipeline configuration holding the slicer section (required)")
	fs.IntVar(&region, "region", 1, "region number used in tile names")
	fs.StringVar(&role, "role", "", "role of the tiles to stitch (required)")
	fs.StringVar(&outPath, "out", "", "stitched image (required)")
	fs.StringVar(&format, "format", "", "stitched image format, tiff (16-bit) or raw; taken from the --out extension when empty")
	fs.StringVar(&graphFile, "graph", "", "write a DOT graph of the run to this file")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if tilesDir == "" || configPath == "" || role == "" || outPath == "" {
		return errors.New("--tiles, --config, --role and --out are required")
	}
	output, err := outputCodec(format, outPath)
	if err != nil {
		return err
	}

	settings, logger, closer, err := common.load()
	if err != nil {
		return err
	}
	defer closer.Close()

	doc, err := config.ReadDocument(configPath)
	if err != nil {
		return err
	}
	if doc.Slicer == nil {
		return errors.Errorf("%s has no slicer section", configPath)
	}
	grid, err := stage.GridFromSlicer(*doc.Slicer)
	if err != nil {
		return err
	}
	// raw tiles carry their compression, the extension is enough
	codec, err := settings.Tiling.CodecValue()
	if doc.Slicer.Codec != "" {
		codec, err = tilestore.CodecByName(doc.Slicer.Codec, "")
	}
	if err != nil {
		return err
	}

	stitched, err := stage.Reassemble(ctx, tilestore.New(tilesDir, codec), stage.ReassemblyJob{
		Region: region,
		Role:   role,
		Grid:   grid,
	}, stage.Options{
		Workers:   settings.Tiling.Workers,
		Logger:    logger,
		GraphFile: graphFile,
	})
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "unable to create stitched image")
	}
	if err := output.Encode(f, stitched); err != nil {
		f.Close()
		os.Remove(outPath)

		return errors.Wrapf(err, "unable to write %s", outPath)
	}

	return errors.Wrap(f.Close(), "unable to close stitched image")
}

// outputCodec picks the codec of the stitched image. TIFF output fails on
// values that do not fit 16 bits; raw keeps every value.
func outputCodec(format, path string) (tilestore.Codec, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tif", ".tiff":
			format = "tiff"
		default:
			format = "raw"
		}
	}
	switch strings.ToLower(format) {
	case "tif", "tiff":
		return tilestore.CodecByName("tiff", "deflate")
	case "raw", "tile":
		return tilestore.CodecByName("raw", tilestore.CompressionZstd)
	default:
		return nil, errors.Errorf("unknown stitched image format %q", format)
	}
}
