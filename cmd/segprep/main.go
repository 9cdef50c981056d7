// segprep prepares the segmentation channels of a multiplexed microscopy
// image and tiles them for the segmenter.
//
// Three commands run the stage:
//
//	prepare  resolves the segmentation channels, rewrites the OME-XML
//	         metadata and updates the pipeline configuration.
//	slice    cuts the selected channel planes into overlapping tiles.
//	stitch   reassembles processed tiles into a single plane.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/internal/logging"
)

type command struct {
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = map[string]command{
	"prepare": {summary: "resolve segmentation channels and reconcile OME-XML metadata", run: runPrepare},
	"slice":   {summary: "cut channel planes into overlapping tiles", run: runSlice},
	"stitch":  {summary: "reassemble tiles into a single plane", run: runStitch},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)

		return errors.New("missing command")
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage(os.Stderr)

		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(os.Stderr)

		return errors.Errorf("unknown command %q", args[0])
	}

	return cmd.run(ctx, args[1:])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `segprep prepares segmentation channels and tiles them.

Usage:
  segprep <command> [flags]

Commands:
  prepare  %s
  slice    %s
  stitch   %s

Run "segprep <command> --help" for the flags of a command.
`, commands["prepare"].summary, commands["slice"].summary, commands["stitch"].summary)
}

// parseFlags parses args into fs. It reports false when help was requested
// and nothing else should run.
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}

		return false, err
	}
	if fs.NArg() > 0 {
		return false, errors.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	return true, nil
}

// commonFlags are shared by every command.
type commonFlags struct {
	settingsPath string
	logLevel     string
	workers      int
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&c.settingsPath, "settings", "", "TOML settings file (defaults are used when empty)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level overriding the settings: debug, info, warn or error")
	fs.IntVar(&c.workers, "workers", 0, "tiles processed concurrently, overriding the settings")
}

// load returns the settings and the logger they configure. The closer
// releases the log file.
func (c *commonFlags) load() (config.Settings, *slog.Logger, io.Closer, error) {
	settings := config.DefaultSettings()
	if c.settingsPath != "" {
		var err error
		settings, err = config.LoadSettings(c.settingsPath)
		if err != nil {
			return settings, nil, nil, err
		}
	}
	if c.logLevel != "" {
		settings.Log.Level = c.logLevel
	}
	if c.workers > 0 {
		settings.Tiling.Workers = c.workers
	}

	logger, closer, err := logging.New(settings.Log)
	if err != nil {
		return settings, nil, nil, err
	}

	return settings, logger, closer, nil
}
