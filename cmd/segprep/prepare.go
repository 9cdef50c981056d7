package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/pkg/channel"
	"github.com/askiada/go-segprep/pkg/stage"
)

func runPrepare(_ context.Context, args []string) error {
	var (
		common     commonFlags
		xmlPath    string
		configPath string
		tablePath  string
		outXML     string
		outConfig  string
	)

	fs := pflag.NewFlagSet("segprep prepare", pflag.ContinueOnError)
	common.add(fs)
	fs.StringVar(&xmlPath, "ome-xml", "", "OME-XML metadata of the image (required)")
	fs.StringVar(&configPath, "config", "", "pipeline configuration, YAML or JSON")
	fs.StringVar(&tablePath, "channels", "", "channel table selecting the segmentation channels; segmentation_channels of --config is used otherwise")
	fs.StringVar(&outXML, "out-xml", "", "reconciled OME-XML (required)")
	fs.StringVar(&outConfig, "out-config", "", "updated pipeline configuration (defaults to --config)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if xmlPath == "" || outXML == "" {
		return errors.New("--ome-xml and --out-xml are required")
	}
	if outConfig == "" {
		outConfig = configPath
	}
	if outConfig == "" {
		return errors.New("--config or --out-config is required")
	}

	settings, logger, closer, err := common.load()
	if err != nil {
		return err
	}
	defer closer.Close()

	doc := &config.Document{}
	if configPath != "" {
		doc, err = config.ReadDocument(configPath)
		if err != nil {
			return err
		}
	}

	var (
		req   channel.Request
		table *channel.SelectionTable
	)
	switch {
	case tablePath != "":
		table, err = readTable(tablePath)
		if err != nil {
			return err
		}
		req = table.Request()
	case doc.SegmentationChannels != nil:
		req = *doc.SegmentationChannels
	default:
		return errors.New("no segmentation channels: pass --channels or set segmentation_channels")
	}

	xml, err := os.ReadFile(xmlPath)
	if err != nil {
		return errors.Wrap(err, "unable to read OME-XML")
	}
	prepared, err := stage.Prepare(xml, req, doc, stage.PrepareOptions{
		TargetUnit: settings.Metadata.TargetUnit,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if table != nil {
		addThresholds(prepared.Document, table)
	}

	if err := os.WriteFile(outXML, prepared.XML, 0o644); err != nil {
		return errors.Wrap(err, "unable to write OME-XML")
	}
	if err := config.WriteDocument(outConfig, prepared.Document); err != nil {
		return err
	}
	logger.Info("metadata prepared", slog.String("xml", outXML), slog.String("config", outConfig))

	return nil
}

func readTable(path string) (*channel.SelectionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open channel table")
	}
	defer f.Close()

	return channel.ReadSelectionTable(f)
}

// addThresholds records the threshold columns of the channel table for the
// thresholding stage.
func addThresholds(doc *config.Document, table *channel.SelectionTable) {
	high, low := table.Thresholds(), table.ThresholdsLow()
	if len(high) == 0 && len(low) == 0 {
		return
	}

	extra := make(map[string]interface{}, len(doc.Extra)+2)
	for k, v := range doc.Extra {
		extra[k] = v
	}
	if len(high) > 0 {
		extra["channel_thresholds"] = high
	}
	if len(low) > 0 {
		extra["channel_thresholds_low"] = low
	}
	doc.Extra = extra
}
