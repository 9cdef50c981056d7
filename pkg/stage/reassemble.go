package stage

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/pkg/pipeline"
	"github.com/askiada/go-segprep/pkg/tilestore"
	"github.com/askiada/go-segprep/pkg/tiling"
)

// ReassemblyJob describes the raster to rebuild from the tiles of one role.
type ReassemblyJob struct {
	Region int
	Role   string
	Grid   tiling.Grid
}

type placeResult struct {
	coord tiling.Coord
	err   error
}

// Reassemble reads the tiles of job from store, opts.Workers at a time, and
// places them on a canvas. Tiles absent from the store make it return a
// *tiling.GapError naming them. Any other tile failure returns a
// *TileFailureError, which takes precedence over missing tiles.
func Reassemble(ctx context.Context, store *tilestore.Store, job ReassemblyJob, opts Options) (*mat.Dense, error) {
	logger := opts.logger().With(slog.Int("region", job.Region), slog.String("role", job.Role))
	canvas := tiling.NewCanvas(job.Grid)

	pipe, err := pipeline.New(ctx, opts.pipelineOptions()...)
	if err != nil {
		return nil, err
	}
	// stops the steps already started when a later one cannot be added
	defer pipe.Cancel()

	root, err := pipeline.AddRootStep(pipe, "coordinates", func(ctx context.Context, rootChan chan<- tiling.Coord) error {
		for _, c := range job.Grid.Coords() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- c:
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	placed, err := pipeline.AddStepOneToOne(pipe, "read and place", root, func(_ context.Context, c tiling.Coord) (placeResult, error) {
		stored, err := store.Read(job.Region, c, job.Role)
		if err != nil {
			return placeResult{coord: c, err: err}, nil
		}

		return placeResult{coord: c, err: canvas.Place(c, stored)}, nil
	}, pipeline.StepConcurrency[placeResult](opts.workers()))
	if err != nil {
		return nil, err
	}

	var failures []TileFailure
	err = pipeline.AddSink(pipe, "collect", placed, func(_ context.Context, res placeResult) error {
		switch {
		case res.err == nil:
		case errors.Is(res.err, os.ErrNotExist):
			logger.Warn("tile missing", slog.String("tile", res.coord.String()))
		default:
			logger.Warn("tile not placed", slog.String("tile", res.coord.String()), slog.Any("error", res.err))
			failures = append(failures, TileFailure{Coord: res.coord, Role: job.Role, Err: res.err})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := pipe.Run(); err != nil {
		return nil, errors.Wrap(err, "reassembly aborted")
	}
	if len(failures) > 0 {
		return nil, &TileFailureError{Failures: failures}
	}

	out, err := canvas.Raster()
	if err != nil {
		return nil, err
	}
	logger.Info("reassembly done", slog.Int("tiles", job.Grid.Count()))

	return out, nil
}
