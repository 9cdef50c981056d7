package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-segprep/pkg/pipeline"
	"github.com/askiada/go-segprep/pkg/pipeline/drawer"
	"github.com/askiada/go-segprep/pkg/pipeline/measure"
	"github.com/askiada/go-segprep/pkg/pipeline/model"
)

func emit(total int) func(ctx context.Context, rootChan chan<- int) error {
	return func(ctx context.Context, rootChan chan<- int) error {
		for i := 0; i < total; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	}
}

func TestAddRootStepNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddRootStep(nil, "root step", emit(10))
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddStepOneToOneNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)
	_, err = pipeline.AddStepOneToOne(pipe, "step", (*model.Step[int])(nil), func(_ context.Context, input int) (int, error) {
		return input, nil
	})
	assert.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddSinkNilPipe(t *testing.T) {
	t.Parallel()

	err := pipeline.AddSink(nil, "sink", &model.Step[int]{}, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestRun(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrent int
	}{
		"sequential":    {concurrent: 1},
		"concurrent 4":  {concurrent: 4},
		"concurrent 50": {concurrent: 50},
	}

	for name, tc := range tcs {
		name := name
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := pipeline.New(context.Background())
			require.NoError(t, err)

			root, err := pipeline.AddRootStep(pipe, "root", emit(20))
			require.NoError(t, err)
			squared, err := pipeline.AddStepOneToOne(pipe, "square", root, func(_ context.Context, i int) (int, error) {
				return i * i, nil
			}, pipeline.StepConcurrency[int](tc.concurrent))
			require.NoError(t, err)

			var (
				mu  sync.Mutex
				got []int
			)
			err = pipeline.AddSink(pipe, "collect", squared, func(_ context.Context, i int) error {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, i)

				return nil
			})
			require.NoError(t, err)

			require.NoError(t, pipe.Run())

			expected := make([]int, 20)
			for i := range expected {
				expected[i] = i * i
			}
			assert.ElementsMatch(t, expected, got)
		})
	}
}

func TestRunStepError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", emit(100))
	require.NoError(t, err)
	step, err := pipeline.AddStepOneToOne(pipe, "fail at 7", root, func(_ context.Context, i int) (int, error) {
		if i == 7 {
			return 0, assert.AnError
		}

		return i, nil
	}, pipeline.StepConcurrency[int](3))
	require.NoError(t, err)
	require.NoError(t, pipeline.AddSink(pipe, "drop", step, func(context.Context, int) error { return nil }))

	err = pipe.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunSinkError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", emit(100))
	require.NoError(t, err)
	require.NoError(t, pipeline.AddSink(pipe, "sink", root, func(_ context.Context, i int) error {
		if i == 3 {
			return assert.AnError
		}

		return nil
	}))

	assert.ErrorIs(t, pipe.Run(), assert.AnError)
}

func TestRunReturnsCauseNotCancellation(t *testing.T) {
	t.Parallel()

	for n := 0; n < 50; n++ {
		pipe, err := pipeline.New(context.Background())
		require.NoError(t, err)

		root, err := pipeline.AddRootStep(pipe, "root", emit(1000))
		require.NoError(t, err)
		step, err := pipeline.AddStepOneToOne(pipe, "wait", root, func(ctx context.Context, i int) (int, error) {
			<-ctx.Done()

			return 0, ctx.Err()
		}, pipeline.StepConcurrency[int](4))
		require.NoError(t, err)
		other, err := pipeline.AddRootStep(pipe, "fail", func(context.Context, chan<- int) error {
			return assert.AnError
		})
		require.NoError(t, err)
		require.NoError(t, pipeline.AddSink(pipe, "drop", step, func(context.Context, int) error { return nil }))
		require.NoError(t, pipeline.AddSink(pipe, "drop other", other, func(context.Context, int) error { return nil }))

		err = pipe.Run()
		require.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "fail: ")
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)
	root, err := pipeline.AddRootStep(pipe, "root", func(ctx context.Context, _ chan<- int) error {
		<-ctx.Done()

		return ctx.Err()
	})
	require.NoError(t, err)
	require.NoError(t, pipeline.AddSink(pipe, "sink", root, func(context.Context, int) error { return nil }))

	pipe.Cancel()
	assert.ErrorIs(t, pipe.Run(), context.Canceled)
}

func TestCancelStopsStartedSteps(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	stopped := make(chan struct{})
	_, err = pipeline.AddRootStep(pipe, "root", func(ctx context.Context, rootChan chan<- int) error {
		defer close(stopped)

		return emit(1000)(ctx, rootChan)
	})
	require.NoError(t, err)
	_, err = pipeline.AddStepOneToOne(pipe, "step", (*model.Step[int])(nil), func(_ context.Context, i int) (int, error) {
		return i, nil
	})
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)

	pipe.Cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("root step still running after Cancel")
	}
}

func TestRunParentCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipe, err := pipeline.New(ctx)
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", func(ctx context.Context, _ chan<- int) error {
		<-ctx.Done()

		return ctx.Err()
	})
	require.NoError(t, err)
	require.NoError(t, pipeline.AddSink(pipe, "sink", root, func(context.Context, int) error { return nil }))

	assert.ErrorIs(t, pipe.Run(), context.Canceled)
}

func TestRunWithMeasureAndDrawer(t *testing.T) {
	t.Parallel()

	dotFile := filepath.Join(t.TempDir(), "run.dot")
	msr := measure.NewDefaultMeasure()
	pipe, err := pipeline.New(context.Background(),
		measure.PipelineMeasure(msr),
		drawer.PipelineDrawer(drawer.NewDOTDrawer(dotFile), msr),
	)
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "tiles", emit(10))
	require.NoError(t, err)
	step, err := pipeline.AddStepOneToOne(pipe, "cut", root, func(_ context.Context, i int) (int, error) {
		return i, nil
	}, pipeline.StepConcurrency[int](2))
	require.NoError(t, err)
	require.NoError(t, pipeline.AddSink(pipe, "collect", step, func(context.Context, int) error { return nil }))

	require.NoError(t, pipe.Run())

	cut := msr.GetMetric("cut")
	require.NotNil(t, cut)
	assert.EqualValues(t, 10, cut.Count())
	collect := msr.GetMetric("collect")
	require.NotNil(t, collect)
	assert.EqualValues(t, 10, collect.Count())
	assert.Positive(t, collect.GetTotalDuration())

	content, err := os.ReadFile(dotFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "digraph")
	assert.Contains(t, string(content), `"tiles" -> "cut"`)
	assert.Contains(t, string(content), `"collect" -> "end"`)
}
