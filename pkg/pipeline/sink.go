package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/pkg/pipeline/model"
)

// AddSink consumes the output of input one element at a time. The sink stops
// on the first error returned by sinkFn.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}
	if input == nil {
		return ErrInputMustBeSet
	}
	step := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.SinkStepType,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(input.Details, step.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run before sink function")
		}
	}

	errC := make(chan error, 1)
	decoratedError := newErrorChan(name, errC)
	go func() {
		defer close(errC)
		err := runSink(pipe.ctx, pipe.opts, input, step, sinkFn)
		if err != nil {
			pipe.fail(name, err)
			errC <- err

			return
		}
		for _, opt := range pipe.opts {
			err := opt.AfterSink(step.Details, time.Since(pipe.startTime))
			if err != nil {
				err = errors.Wrap(err, "unable to run after sink function")
				pipe.fail(name, err)
				errC <- err

				return
			}
		}
	}()
	pipe.errcList.add(decoratedError)

	return nil
}

func runSink[I any](
	ctx context.Context,
	opts []model.PipelineOption,
	input, step *model.Step[I],
	sinkFn func(ctx context.Context, input I) error,
) error {
	for {
		startInputChan := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			endInputChan := time.Since(startInputChan)

			startFn := time.Now()
			err := sinkFn(ctx, in)
			if err != nil {
				return err
			}
			endFn := time.Since(startFn)
			for _, opt := range opts {
				err := opt.OnSinkOutput(input.Details, step.Details, endInputChan, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run sink output option")
				}
			}
		}
	}
}
