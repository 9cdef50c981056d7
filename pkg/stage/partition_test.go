package stage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/internal/logging"
	"github.com/askiada/go-segprep/pkg/pipeline/measure"
	"github.com/askiada/go-segprep/pkg/raster"
	"github.com/askiada/go-segprep/pkg/stage"
	"github.com/askiada/go-segprep/pkg/tilestore"
	"github.com/askiada/go-segprep/pkg/tiling"
)

func partitionJob(t *testing.T) stage.PartitionJob {
	t.Helper()

	return stage.PartitionJob{
		Region: 1,
		Grid:   testGrid(t),
		Scheme: tiling.Serpentine{},
		Roles: []stage.RolePlanes{
			{Role: "nucleus", Planes: []mat.Matrix{plane(0)}},
			{Role: "cell", Planes: []mat.Matrix{plane(100), plane(1000)}},
		},
	}
}

func TestPartitionReassemble(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 3, 16} {
		store := tilestore.New(t.TempDir(), tilestore.Raw{Compression: tilestore.CompressionZstd})
		opts := stage.Options{Workers: workers, Logger: logging.Discard()}

		report, err := stage.Partition(context.Background(), store, partitionJob(t), opts)
		require.NoError(t, err)
		assert.Len(t, report.Written, 18)
		assert.Empty(t, report.Failed)
		assert.Positive(t, report.Bytes)
		assert.Equal(t, "serpentine", report.Slicer.Scheme)
		assert.Equal(t, "tile", report.Slicer.Codec)
		assert.Equal(t, 9, report.Slicer.NumTiles)

		names, err := store.List(1, "cell")
		require.NoError(t, err)
		assert.Len(t, names, 9)

		nucleus, err := stage.Reassemble(context.Background(), store, stage.ReassemblyJob{Region: 1, Role: "nucleus", Grid: testGrid(t)}, opts)
		require.NoError(t, err)
		assert.True(t, raster.Equal(plane(0), nucleus))

		cell, err := stage.Reassemble(context.Background(), store, stage.ReassemblyJob{Region: 1, Role: "cell", Grid: testGrid(t)}, opts)
		require.NoError(t, err)
		expected, err := raster.Sum(plane(100), plane(1000))
		require.NoError(t, err)
		assert.True(t, raster.Equal(expected, cell))
	}
}

func brightJob(t *testing.T) stage.PartitionJob {
	t.Helper()

	job := partitionJob(t)
	job.Roles[1].Planes = []mat.Matrix{plane(40000), plane(50000)}

	return job
}

func TestPartitionDefaultCodecKeepsWideSums(t *testing.T) {
	t.Parallel()

	codec, err := config.DefaultSettings().Tiling.CodecValue()
	require.NoError(t, err)
	store := tilestore.New(t.TempDir(), codec)
	opts := stage.Options{Workers: 2, Logger: logging.Discard()}

	_, err = stage.Partition(context.Background(), store, brightJob(t), opts)
	require.NoError(t, err)

	cell, err := stage.Reassemble(context.Background(), store, stage.ReassemblyJob{Region: 1, Role: "cell", Grid: testGrid(t)}, opts)
	require.NoError(t, err)
	expected, err := raster.Sum(plane(40000), plane(50000))
	require.NoError(t, err)
	_, hi := raster.Range(expected)
	require.Greater(t, hi, 65535.0)
	assert.True(t, raster.Equal(expected, cell))
}

func TestPartitionTIFFRejectsWideSums(t *testing.T) {
	t.Parallel()

	store := tilestore.New(t.TempDir(), tilestore.TIFF{})
	report, err := stage.Partition(context.Background(), store, brightJob(t), stage.Options{Workers: 2, Logger: logging.Discard()})
	require.ErrorIs(t, err, stage.ErrTileFailed)

	var failure *stage.TileFailureError
	require.True(t, errors.As(err, &failure))
	require.Len(t, failure.Failures, 9)
	for _, f := range failure.Failures {
		assert.Equal(t, "cell", f.Role)
		assert.ErrorIs(t, f.Err, raster.ErrUnrepresentable)
	}
	assert.Len(t, report.Written, 9, "nucleus tiles fit in 16 bits")
}

func TestPartitionTileFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := tilestore.New(root, tilestore.Raw{})
	// a file where the tile directory of X2_Y1 should be
	blocked := filepath.Join(root, tiling.RegionDir(1), tiling.TileDir(1, tiling.Coord{X: 2, Y: 1}))
	require.NoError(t, os.MkdirAll(filepath.Dir(blocked), 0o755))
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o600))

	report, err := stage.Partition(context.Background(), store, partitionJob(t), stage.Options{Workers: 4, Logger: logging.Discard()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, stage.ErrTileFailed))

	var failure *stage.TileFailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, []tiling.Coord{{X: 2, Y: 1}}, failure.Coords())
	assert.Len(t, failure.Failures, 2)

	require.NotNil(t, report)
	assert.Len(t, report.Written, 16)
	assert.Len(t, report.Failed, 2)
}

func TestPartitionInvalidJob(t *testing.T) {
	t.Parallel()

	store := tilestore.New(t.TempDir(), tilestore.Raw{})
	opts := stage.Options{Logger: logging.Discard()}

	job := partitionJob(t)
	job.Roles = nil
	_, err := stage.Partition(context.Background(), store, job, opts)
	assert.Error(t, err)

	job = partitionJob(t)
	job.Roles[1].Planes = []mat.Matrix{plane(0), mat.NewDense(7, 9, nil)}
	_, err = stage.Partition(context.Background(), store, job, opts)
	assert.ErrorIs(t, err, raster.ErrShape)

	job = partitionJob(t)
	job.Grid.Width = 11
	_, err = stage.Partition(context.Background(), store, job, opts)
	assert.ErrorIs(t, err, tiling.ErrGeometry)
}

func TestPartitionCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := tilestore.New(t.TempDir(), tilestore.Raw{})
	_, err := stage.Partition(ctx, store, partitionJob(t), stage.Options{Workers: 2, Logger: logging.Discard()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPartitionGraph(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	graphFile := filepath.Join(dir, "partition.dot")
	msr := measure.NewDefaultMeasure()
	store := tilestore.New(filepath.Join(dir, "tiles"), tilestore.TIFF{})

	_, err := stage.Partition(context.Background(), store, partitionJob(t), stage.Options{
		Workers:   2,
		Logger:    logging.Discard(),
		Measure:   msr,
		GraphFile: graphFile,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(18), msr.GetMetric("cut and write").Count())
	content, err := os.ReadFile(graphFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "digraph")
	assert.Contains(t, string(content), `"tiles" -> "cut and write"`)
}

func TestReassembleGap(t *testing.T) {
	t.Parallel()

	store := tilestore.New(t.TempDir(), tilestore.Raw{})
	opts := stage.Options{Workers: 3, Logger: logging.Discard()}
	_, err := stage.Partition(context.Background(), store, partitionJob(t), opts)
	require.NoError(t, err)

	require.NoError(t, os.Remove(store.Path(1, tiling.Coord{X: 3, Y: 3}, "nucleus")))
	require.NoError(t, os.Remove(store.Path(1, tiling.Coord{X: 1, Y: 2}, "nucleus")))

	_, err = stage.Reassemble(context.Background(), store, stage.ReassemblyJob{Region: 1, Role: "nucleus", Grid: testGrid(t)}, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, tiling.ErrReassemblyGap)

	var gap *tiling.GapError
	require.True(t, errors.As(err, &gap))
	assert.Equal(t, []tiling.Coord{{X: 1, Y: 2}, {X: 3, Y: 3}}, gap.Missing)
}

func TestReassembleCorruptTile(t *testing.T) {
	t.Parallel()

	store := tilestore.New(t.TempDir(), tilestore.Raw{})
	opts := stage.Options{Workers: 3, Logger: logging.Discard()}
	_, err := stage.Partition(context.Background(), store, partitionJob(t), opts)
	require.NoError(t, err)

	corrupt := tiling.Coord{X: 2, Y: 2}
	require.NoError(t, os.WriteFile(store.Path(1, corrupt, "cell"), []byte("not a tile"), 0o600))
	require.NoError(t, os.Remove(store.Path(1, tiling.Coord{X: 1, Y: 1}, "cell")))

	_, err = stage.Reassemble(context.Background(), store, stage.ReassemblyJob{Region: 1, Role: "cell", Grid: testGrid(t)}, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, stage.ErrTileFailed)

	var failure *stage.TileFailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, []tiling.Coord{corrupt}, failure.Coords())
}
