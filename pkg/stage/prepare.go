// Package stage runs the segmentation preparation stage: channel selection
// and metadata reconciliation, then tiling of the selected channels and the
// reassembly of processed tiles.
package stage

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/internal/config"
	"github.com/askiada/go-segprep/pkg/channel"
	"github.com/askiada/go-segprep/pkg/ome"
	"github.com/askiada/go-segprep/pkg/units"
)

// PrepareOptions tunes Prepare.
type PrepareOptions struct {
	// TargetUnit is the unit of the rewritten physical sizes, nanometres when
	// empty.
	TargetUnit string
	// Roles must all be selected by the request. Nucleus and cell are required
	// when empty.
	Roles  []channel.Role
	Logger *slog.Logger
}

// Prepared is the outcome of Prepare.
type Prepared struct {
	Catalog    *channel.Catalog
	Resolution *channel.Resolution
	Report     *ome.Report
	// XML is the reconciled OME-XML document.
	XML []byte
	// Document is the pipeline configuration updated with the channel names,
	// the resolved channel indices and the physical pixel sizes.
	Document *config.Document
}

// Prepare resolves req against the channels of the OME-XML document xml,
// reconciles the document and updates doc. Every role of opts.Roles must be
// requested. doc may be nil; it is not modified when Prepare fails. Pixel sizes set in doc override the ones
// declared by the document.
func Prepare(xml []byte, req channel.Request, doc *config.Document, opts PrepareOptions) (*Prepared, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	target := opts.TargetUnit
	if target == "" {
		target = units.Nanometre
	}

	roles := opts.Roles
	if len(roles) == 0 {
		roles = []channel.Role{channel.Nucleus, channel.Cell}
	}
	if err := req.Require(roles...); err != nil {
		return nil, err
	}

	md, err := ome.Parse(xml)
	if err != nil {
		return nil, err
	}
	cat := md.Catalog()
	res, err := channel.Resolve(cat, req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to resolve segmentation channels")
	}

	reconcileOpts := []ome.Option{ome.WithTargetUnit(target), ome.WithLogger(logger)}
	if doc != nil {
		for _, axis := range []ome.Axis{ome.AxisX, ome.AxisY} {
			if value, unit, ok := doc.PixelSize(string(axis)); ok {
				reconcileOpts = append(reconcileOpts, ome.WithPhysicalSize(axis, value, unit))
			}
		}
	}
	report, err := ome.Reconcile(md, res, reconcileOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to reconcile metadata")
	}
	out, err := report.Metadata.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "unable to serialise metadata")
	}

	updated := &config.Document{}
	if doc != nil {
		copied := *doc
		updated = &copied
	}
	updated.ChannelNames = cat.AllNames()
	updated.SegmentationChannelIDs = res.Map()
	for _, axis := range []ome.Axis{ome.AxisX, ome.AxisY} {
		if l := report.Geometry.Physical(axis); l.HasValue {
			updated.SetPixelSize(string(axis), l.Value, l.Unit)
		}
	}

	logger.Info("segmentation channels resolved",
		slog.Any("channels", res.Names(cat)),
		slog.String("annotation", report.AnnotationID),
		slog.Int("warnings", len(report.Warnings)),
	)

	return &Prepared{
		Catalog:    cat,
		Resolution: res,
		Report:     report,
		XML:        out,
		Document:   updated,
	}, nil
}
