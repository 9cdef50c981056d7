package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-segprep/pkg/pipeline/model"
)

func sequentialOneToOneFn[I any, O any](
	ctx context.Context,
	goIdx int,
	opts []model.PipelineOption,
	input *model.Step[I],
	output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error),
) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			startFn := time.Now()
			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
			endFn := time.Since(startFn)

			// we check the context again to make sure all go routines currently running
			// stop to add new elements to the pipeline
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
			case output.Output <- out:
				for _, opt := range opts {
					err := opt.OnStepOutput(input.Details, output.Details, time.Since(start)-endFn, endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run step output option")
					}
				}
			}
		}
	}
}

func concurrentOneToOneFn[I any, O any](
	ctx context.Context,
	opts []model.PipelineOption,
	input *model.Step[I],
	output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error),
) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	// each consumer stops as soon as an error happens
	for goIdx := 0; goIdx < output.Details.Concurrent; goIdx++ {
		localGoIdx := goIdx
		errGrp.Go(func() error {
			return sequentialOneToOneFn(dCtx, localGoIdx, opts, input, output, oneToOneFn)
		})
	}

	return errGrp.Wait()
}

func runOneToOne[I any, O any](
	ctx context.Context,
	opts []model.PipelineOption,
	input *model.Step[I],
	output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error),
) error {
	if output.Details.Concurrent <= 0 {
		output.Details.Concurrent = 1
	}
	if output.Details.Concurrent == 1 {
		return sequentialOneToOneFn(ctx, 0, opts, input, output, oneToOneFn)
	}

	return concurrentOneToOneFn(ctx, opts, input, output, oneToOneFn)
}

// AddStepOneToOne adds a step producing exactly one output per input.
func AddStepOneToOne[I any, O any](
	pipe *Pipeline,
	name string,
	input *model.Step[I],
	oneToOneFn func(context.Context, I) (O, error),
	opts ...StepOption[O],
) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.NormalStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareStep(input.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	errC := make(chan error, 1)
	decoratedError := newErrorChan(name, errC)

	go func() {
		defer func() {
			close(step.Output)
			close(errC)
		}()
		err := runOneToOne(pipe.ctx, pipe.opts, input, step, oneToOneFn)
		if err != nil {
			pipe.fail(name, err)
			errC <- err
		}
	}()
	pipe.errcList.add(decoratedError)

	return step, nil
}
