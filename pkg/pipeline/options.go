package pipeline

import "github.com/askiada/go-segprep/pkg/pipeline/model"

type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many goroutines consume the input of a step.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}
