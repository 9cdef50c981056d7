package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrPipelineMustBeSet is returned when a step is added to a nil pipeline.
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	// ErrInputMustBeSet is returned when a step has no input step.
	ErrInputMustBeSet = errors.New("input step must be set")
)

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.list = append(ec.list, errChan)
}

type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{
		c:    c,
		name: name,
	}
}

// mergeErrors fans the error channels of every step into one channel. Each
// error is prefixed with the name of the step that returned it.
func mergeErrors(cs ...*errorChan) <-chan error {
	var wg sync.WaitGroup
	// one error at most per step
	out := make(chan error, len(cs))

	output := func(c *errorChan) {
		defer wg.Done()
		if c.c == nil {
			return
		}
		for n := range c.c {
			out <- errors.Wrap(n, c.name)
		}
	}
	wg.Add(len(cs))
	for _, c := range cs {
		go output(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
