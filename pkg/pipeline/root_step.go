package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/pkg/pipeline/model"
)

// AddRootStep adds the step feeding the pipeline. stepFn must stop sending
// once ctx is done.
func AddRootStep[O any](
	pipe *Pipeline,
	name string,
	stepFn func(ctx context.Context, rootChan chan<- O) error,
	opts ...StepOption[O],
) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.RootStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareStep(model.StartStep.Details, step.Details)
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
		err := stepFn(pipe.ctx, step.Output)
		if err != nil {
			pipe.fail(name, err)
			errC <- err
		}
	}()
	pipe.errcList.add(decoratedError)

	return step, nil
}
