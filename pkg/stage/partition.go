package stage

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/pkg/pipeline"
	"github.com/askiada/go-segprep/pkg/raster"
	"github.com/askiada/go-segprep/pkg/tilestore"
	"github.com/askiada/go-segprep/pkg/tiling"
)

// RolePlanes are the planes of the channels resolved for one role. They are
// summed into the single raster that is tiled.
type RolePlanes struct {
	Role   string
	Planes []mat.Matrix
}

// PartitionJob describes the tiles to write for one region.
type PartitionJob struct {
	Region int
	Grid   tiling.Grid
	// Scheme orders the tiles, row-major when nil.
	Scheme tiling.Scheme
	Roles  []RolePlanes
}

// TileWrite is a tile written to the store.
type TileWrite struct {
	Coord tiling.Coord
	Role  string
	Path  string
	Size  int64
}

// PartitionReport is the outcome of Partition.
type PartitionReport struct {
	Written []TileWrite
	Failed  []TileFailure
	// Bytes is the total size of the written tiles.
	Bytes  int64
	Slicer config.Slicer
}

type tileJob struct {
	tile tiling.Tile
	role string
	src  *mat.Dense
}

type tileResult struct {
	write TileWrite
	err   error
}

// Partition cuts the raster of every role of job into the tiles of job.Grid
// and writes them to store, opts.Workers tiles at a time. A tile that cannot
// be written does not stop the others: the report lists every failed tile
// and a *TileFailureError is returned with it. Cancelling ctx aborts the
// whole run.
func Partition(ctx context.Context, store *tilestore.Store, job PartitionJob, opts Options) (*PartitionReport, error) {
	if len(job.Roles) == 0 {
		return nil, errors.New("no role to partition")
	}
	scheme := job.Scheme
	if scheme == nil {
		scheme = tiling.RowMajor{}
	}
	sources := make([]*mat.Dense, len(job.Roles))
	for i, rp := range job.Roles {
		src, err := raster.Sum(rp.Planes...)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to combine %s planes", rp.Role)
		}
		if rows, cols := src.Dims(); rows != job.Grid.Height || cols != job.Grid.Width {
			return nil, errors.Wrapf(tiling.ErrGeometry, "%s raster is %dx%d, grid expects %dx%d",
				rp.Role, cols, rows, job.Grid.Width, job.Grid.Height)
		}
		sources[i] = src
	}
	tiles, err := job.Grid.Tiles(scheme)
	if err != nil {
		return nil, err
	}

	logger := opts.logger().With(slog.Int("region", job.Region))
	pipe, err := pipeline.New(ctx, opts.pipelineOptions()...)
	if err != nil {
		return nil, err
	}
	// stops the steps already started when a later one cannot be added
	defer pipe.Cancel()

	root, err := pipeline.AddRootStep(pipe, "tiles", func(ctx context.Context, rootChan chan<- tileJob) error {
		for _, t := range tiles {
			for i, rp := range job.Roles {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case rootChan <- tileJob{tile: t, role: rp.Role, src: sources[i]}:
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	written, err := pipeline.AddStepOneToOne(pipe, "cut and write", root, func(_ context.Context, tj tileJob) (tileResult, error) {
		res := tileResult{write: TileWrite{
			Coord: tj.tile.Coord,
			Role:  tj.role,
			Path:  store.Path(job.Region, tj.tile.Coord, tj.role),
		}}
		res.write.Size, res.err = store.Write(job.Region, tj.tile.Coord, tj.role, tiling.Cut(tj.src, tj.tile))

		return res, nil
	}, pipeline.StepConcurrency[tileResult](opts.workers()))
	if err != nil {
		return nil, err
	}

	report := &PartitionReport{Slicer: SlicerInfo(job.Grid)}
	report.Slicer.Scheme = scheme.Name()
	report.Slicer.Codec = store.Codec().Ext()
	err = pipeline.AddSink(pipe, "report", written, func(_ context.Context, res tileResult) error {
		if res.err != nil {
			logger.Warn("tile not written", slog.String("tile", res.write.Coord.String()),
				slog.String("role", res.write.Role), slog.Any("error", res.err))
			report.Failed = append(report.Failed, TileFailure{Coord: res.write.Coord, Role: res.write.Role, Err: res.err})

			return nil
		}
		logger.Debug("tile written", slog.String("path", res.write.Path),
			slog.String("size", humanize.Bytes(uint64(res.write.Size))))
		report.Written = append(report.Written, res.write)
		report.Bytes += res.write.Size

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := pipe.Run(); err != nil {
		return nil, errors.Wrap(err, "partition aborted")
	}

	logger.Info("partition done",
		slog.Int("tiles", len(report.Written)),
		slog.Int("failed", len(report.Failed)),
		slog.String("size", humanize.Bytes(uint64(report.Bytes))),
	)
	if len(report.Failed) > 0 {
		return report, &TileFailureError{Failures: report.Failed}
	}

	return report, nil
}
