package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time

	errOnce  sync.Once
	firstErr error
}

// New creates a new pipeline. Steps start as soon as they are added and stop
// when ctx is cancelled or when any step of the pipeline fails.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// fail records err as the error of the pipeline unless a step failed before,
// then cancels every step.
func (p *Pipeline) fail(name string, err error) {
	p.errOnce.Do(func() {
		p.firstErr = errors.Wrap(err, name)
	})
	p.cancel()
}

// Cancel stops every step. Run returns once they have all stopped.
func (p *Pipeline) Cancel() {
	p.cancel()
}

// waitForPipeline waits for results from all error channels.
// It returns early on the first error.
func waitForPipeline(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

// Run waits for every step to finish. The first error cancels the remaining
// steps and is returned, whichever step reports first.
func (p *Pipeline) Run() error {
	defer p.cancel()

	err := waitForPipeline(p.errcList.list...)
	if err != nil {
		// a failing step records its error before sending it
		p.errOnce.Do(func() { p.firstErr = err })

		return p.firstErr
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
