package pipeline

import (
	"context"
	"testing"
)

func createInputChan(t *testing.T, total int) chan int {
	t.Helper()

	inputChan := make(chan int)

	go func() {
		defer close(inputChan)

		for i := 0; i < total; i++ {
			inputChan <- i
		}
	}()

	return inputChan
}

func createInputChanWithCancel(t *testing.T, total int, offset int, cancel context.CancelFunc) chan int {
	t.Helper()

	inputChan := make(chan int)

	// the channel is left open after cancel so consumers can only observe ctx.Done
	go func() {
		for i := 0; i < total; i++ {
			if i == offset {
				cancel()

				return
			}
			inputChan <- i
		}
		close(inputChan)
	}()

	return inputChan
}

func processOutputChan(t *testing.T, output <-chan int) []int {
	t.Helper()

	var res []int
	for out := range output {
		res = append(res, out)
	}

	return res
}
