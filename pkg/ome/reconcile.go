package ome

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/pkg/channel"
	"github.com/askiada/go-segprep/pkg/units"
)

// AxisWarning reports an axis whose physical size was left unconverted.
type AxisWarning struct {
	Axis   Axis
	Reason string
}

func (w AxisWarning) String() string {
	return fmt.Sprintf("PhysicalSize%s left unconverted: %s", w.Axis, w.Reason)
}

// Report is the outcome of Reconcile.
type Report struct {
	// Metadata is the reconciled document. The input document is not modified.
	Metadata     *Metadata
	Geometry     Geometry
	Planes       []PlaneRecord
	Provenance   Provenance
	AnnotationID string
	Warnings     []AxisWarning
}

type override struct {
	axis  Axis
	value float64
	unit  string
}

type reconcileOptions struct {
	target    string
	overrides []override
	logger    *slog.Logger
}

// Option configures Reconcile.
type Option func(*reconcileOptions)

// WithTargetUnit sets the unit physical sizes are converted to. Nanometres are
// used by default.
func WithTargetUnit(unit string) Option {
	return func(o *reconcileOptions) {
		o.target = unit
	}
}

// WithPhysicalSize replaces the declared physical size of axis before
// conversion.
func WithPhysicalSize(axis Axis, value float64, unit string) Option {
	return func(o *reconcileOptions) {
		o.overrides = append(o.overrides, override{axis: axis, value: value, unit: unit})
	}
}

// WithLogger sets the logger receiving axis warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *reconcileOptions) {
		o.logger = logger
	}
}

// Reconcile rewrites a copy of md into canonical form: XYZCT dimension order,
// X and Y physical sizes in the target unit, SizeC×SizeZ regenerated TiffData
// records and an annotation naming the channels of every role in res.
//
// Missing or mismatching channel and depth counts fail with
// ErrMetadataInconsistent. An axis that cannot be converted is left as is and
// reported in Report.Warnings.
func Reconcile(md *Metadata, res *channel.Resolution, opts ...Option) (*Report, error) {
	if md == nil {
		return nil, errors.New("metadata must be set")
	}
	options := reconcileOptions{target: units.Nanometre, logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	out := md.Copy()
	geom, err := out.Geometry()
	if err != nil {
		return nil, err
	}
	pixels, err := out.pixels()
	if err != nil {
		return nil, err
	}
	if res != nil {
		for _, idx := range res.All() {
			if idx >= geom.SizeC {
				return nil, inconsistent("SizeC", "resolved channel %d is out of range for %d channels", idx, geom.SizeC)
			}
		}
	}

	pixels.CreateAttr("DimensionOrder", CanonicalDimensionOrder)

	for _, o := range options.overrides {
		pixels.CreateAttr("PhysicalSize"+string(o.axis), formatFloat(o.value))
		pixels.CreateAttr("PhysicalSize"+string(o.axis)+"Unit", o.unit)
	}

	report := &Report{Metadata: out}
	for _, axis := range []Axis{AxisX, AxisY} {
		warning, err := convertAxis(pixels, axis, options.target)
		if err != nil {
			return nil, err
		}
		if warning != nil {
			options.logger.Warn("physical size left unconverted",
				slog.String("axis", string(axis)),
				slog.String("reason", warning.Reason),
			)
			report.Warnings = append(report.Warnings, *warning)
		}
	}

	index := PlaneIndex{SizeC: geom.SizeC, SizeZ: geom.SizeZ}
	report.Planes = index.Records()
	replaceTiffData(pixels, report.Planes)

	if res != nil {
		report.Provenance = Provenance{
			Roles:     res.Roles(),
			Names:     res.Names(out.Catalog()),
			Algorithm: channel.AlgorithmVersion,
		}
		report.AnnotationID = out.setProvenance(report.Provenance)
	}

	report.Geometry, err = out.Geometry()
	if err != nil {
		return nil, errors.Wrap(err, "reconciled metadata")
	}

	return report, nil
}

func convertAxis(pixels *etree.Element, axis Axis, target string) (*AxisWarning, error) {
	length, err := physicalSize(pixels, axis)
	if err != nil {
		return nil, err
	}
	switch {
	case !length.HasValue:
		return &AxisWarning{Axis: axis, Reason: "missing physical size"}, nil
	case !length.HasUnit:
		return &AxisWarning{Axis: axis, Reason: "missing physical size unit"}, nil
	}

	value, err := units.Convert(length.Value, length.Unit, target)
	if err != nil {
		return &AxisWarning{Axis: axis, Reason: err.Error()}, nil //nolint:nilerr // unit errors are warnings
	}
	pixels.CreateAttr("PhysicalSize"+string(axis), formatFloat(value))
	pixels.CreateAttr("PhysicalSize"+string(axis)+"Unit", units.Normalize(target))

	return nil, nil
}

// replaceTiffData removes every TiffData element and inserts records after
// the last Channel element.
func replaceTiffData(pixels *etree.Element, records []PlaneRecord) {
	for _, td := range pixels.SelectElements("TiffData") {
		pixels.RemoveChild(td)
	}

	index := 0
	if channels := pixels.SelectElements("Channel"); len(channels) > 0 {
		index = channels[len(channels)-1].Index() + 1
	}
	for i, rec := range records {
		td := etree.NewElement("TiffData")
		td.CreateAttr("FirstT", strconv.Itoa(rec.FirstT))
		td.CreateAttr("FirstC", strconv.Itoa(rec.FirstC))
		td.CreateAttr("FirstZ", strconv.Itoa(rec.FirstZ))
		td.CreateAttr("IFD", strconv.Itoa(rec.IFD))
		td.CreateAttr("PlaneCount", strconv.Itoa(rec.PlaneCount))
		pixels.InsertChildAt(index+i, td)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
