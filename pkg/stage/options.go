package stage

import (
	"log/slog"

	"github.com/askiada/go-segprep/pkg/pipeline/drawer"
	"github.com/askiada/go-segprep/pkg/pipeline/measure"
	"github.com/askiada/go-segprep/pkg/pipeline/model"
)

// Options tunes the tile runs.
type Options struct {
	// Workers bounds the tiles processed concurrently. One worker is used when
	// it is not positive.
	Workers int
	Logger  *slog.Logger
	// Measure collects per-step durations when set.
	Measure measure.Measure
	// GraphFile receives a DOT graph of the run when set.
	GraphFile string
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return 1
	}

	return o.Workers
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}

func (o Options) pipelineOptions() []model.PipelineOption {
	msr := o.Measure
	if msr == nil && o.GraphFile != "" {
		msr = measure.NewDefaultMeasure()
	}
	if msr == nil {
		return nil
	}

	opts := []model.PipelineOption{measure.PipelineMeasure(msr)}
	if o.GraphFile != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(o.GraphFile), msr))
	}

	return opts
}
