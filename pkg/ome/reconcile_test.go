package ome_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-segprep/pkg/channel"
	"github.com/askiada/go-segprep/pkg/ome"
)

func resolveSample(t *testing.T, md *ome.Metadata) *channel.Resolution {
	t.Helper()

	var req channel.Request
	req.Add(channel.Nucleus, channel.SingleName("DAPI"))
	req.Add(channel.Cell, channel.CandidateList{"ECAD", "CD45"})
	res, err := channel.Resolve(md.Catalog(), req)
	require.NoError(t, err)

	return res
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	md, err := ome.Parse([]byte(sampleXML))
	require.NoError(t, err)
	before, err := md.Bytes()
	require.NoError(t, err)

	report, err := ome.Reconcile(md, resolveSample(t, md))
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)

	geom := report.Geometry
	assert.Equal(t, ome.CanonicalDimensionOrder, geom.DimensionOrder)
	assert.InDelta(t, 377.0, geom.PhysicalX.Value, 1e-9)
	assert.Equal(t, "nm", geom.PhysicalX.Unit)
	assert.InDelta(t, 500.0, geom.PhysicalY.Value, 1e-9)
	assert.Equal(t, "nm", geom.PhysicalY.Unit)

	planes, err := report.Metadata.Planes()
	require.NoError(t, err)
	assert.Equal(t, ome.PlaneIndex{SizeC: 3, SizeZ: 2}.Records(), planes)
	assert.Equal(t, report.Planes, planes)

	prov, ok := report.Metadata.Provenance()
	require.True(t, ok)
	assert.Equal(t, channel.AlgorithmVersion, prov.Algorithm)
	assert.Equal(t, []channel.Role{channel.Nucleus, channel.Cell}, prov.Roles)
	assert.Equal(t, map[channel.Role][]string{
		channel.Nucleus: {"DAPI"},
		channel.Cell:    {"E-cadherin"},
	}, prov.Names)
	assert.Equal(t, "Annotation:1", report.AnnotationID)

	after, err := md.Bytes()
	require.NoError(t, err)
	assert.Equal(t, before, after, "input metadata must not change")
}

func TestReconcileDocumentLayout(t *testing.T) {
	t.Parallel()

	md, err := ome.Parse([]byte(sampleXML))
	require.NoError(t, err)
	report, err := ome.Reconcile(md, resolveSample(t, md))
	require.NoError(t, err)

	out, err := report.Metadata.Bytes()
	require.NoError(t, err)
	content := string(out)

	lastChannel := strings.LastIndex(content, "<Channel ")
	firstTiffData := strings.Index(content, "<TiffData ")
	plane := strings.Index(content, "<Plane ")
	require.Positive(t, lastChannel)
	assert.Greater(t, firstTiffData, lastChannel)
	assert.Greater(t, plane, strings.LastIndex(content, "<TiffData "))
	assert.Equal(t, 6, strings.Count(content, "<TiffData "))
	assert.Contains(t, content, `<TiffData FirstT="0" FirstC="1" FirstZ="1" IFD="3" PlaneCount="1"/>`)
	assert.Contains(t, content, "<Key>SegmentationChannels</Key><Value><Nucleus>DAPI</Nucleus><Cell>E-cadherin</Cell></Value>")
	assert.Contains(t, content, `DimensionOrder="XYZCT"`)
	assert.Contains(t, content, "acquired on scope 3")

	// the output parses back to the same description
	reparsed, err := ome.Parse(out)
	require.NoError(t, err)
	geom, err := reparsed.Geometry()
	require.NoError(t, err)
	assert.Equal(t, report.Geometry, geom)
}

func TestReconcileReplacesProvenance(t *testing.T) {
	t.Parallel()

	md, err := ome.Parse([]byte(sampleXML))
	require.NoError(t, err)
	first, err := ome.Reconcile(md, resolveSample(t, md))
	require.NoError(t, err)

	var req channel.Request
	req.Add(channel.Cell, channel.SingleName("CD45"))
	res, err := channel.Resolve(first.Metadata.Catalog(), req)
	require.NoError(t, err)

	second, err := ome.Reconcile(first.Metadata, res)
	require.NoError(t, err)

	out, err := second.Metadata.Bytes()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), "<Key>SegmentationChannels</Key>"))

	prov, ok := second.Metadata.Provenance()
	require.True(t, ok)
	assert.Equal(t, map[channel.Role][]string{channel.Cell: {"CD45"}}, prov.Names)
	// reconciling twice is stable
	assert.Equal(t, first.Geometry, second.Geometry)
	assert.Equal(t, first.Planes, second.Planes)
}

func TestReconcileWithoutAnnotations(t *testing.T) {
	t.Parallel()

	md, err := ome.Parse([]byte(buildXML(pixelsAttrs{sizeC: "2", sizeZ: "1", channels: 2, physicalX: "1", unitX: "nm", physicalY: "1", unitY: "nm"})))
	require.NoError(t, err)

	var req channel.Request
	req.Add(channel.Nucleus, channel.SingleName("ch0"))
	res, err := channel.Resolve(md.Catalog(), req)
	require.NoError(t, err)

	report, err := ome.Reconcile(md, res)
	require.NoError(t, err)
	assert.Equal(t, "Annotation:0", report.AnnotationID)

	out, err := report.Metadata.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "</Image><StructuredAnnotations>")
	assert.Equal(t, 1.0, report.Geometry.PhysicalX.Value)
}

func TestReconcileOverridesAndTargetUnit(t *testing.T) {
	t.Parallel()

	md, err := ome.Parse([]byte(sampleXML))
	require.NoError(t, err)

	report, err := ome.Reconcile(md, nil,
		ome.WithPhysicalSize(ome.AxisX, 0.65, "&#956;m"),
		ome.WithTargetUnit("um"),
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, report.Geometry.PhysicalX.Value, 1e-12)
	assert.Equal(t, "µm", report.Geometry.PhysicalX.Unit)
	assert.InDelta(t, 0.5, report.Geometry.PhysicalY.Value, 1e-12)
	assert.Equal(t, "µm", report.Geometry.PhysicalY.Unit)

	_, ok := report.Metadata.Provenance()
	assert.False(t, ok)
}

func TestReconcileAxisWarnings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		attrs    pixelsAttrs
		expected []ome.Axis
	}{
		"missing sizes": {
			attrs:    pixelsAttrs{sizeC: "1", sizeZ: "1", channels: 1},
			expected: []ome.Axis{ome.AxisX, ome.AxisY},
		},
		"missing unit on Y": {
			attrs:    pixelsAttrs{sizeC: "1", sizeZ: "1", channels: 1, physicalX: "2", unitX: "µm", physicalY: "2"},
			expected: []ome.Axis{ome.AxisY},
		},
		"unknown unit on X": {
			attrs:    pixelsAttrs{sizeC: "1", sizeZ: "1", channels: 1, physicalX: "2", unitX: "pixel", physicalY: "2", unitY: "mm"},
			expected: []ome.Axis{ome.AxisX},
		},
	}

	for name, tc := range tcs {
		name := name
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			md, err := ome.Parse([]byte(buildXML(tc.attrs)))
			require.NoError(t, err)

			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			report, err := ome.Reconcile(md, nil, ome.WithLogger(logger))
			require.NoError(t, err)

			axes := make([]ome.Axis, len(report.Warnings))
			for i, w := range report.Warnings {
				axes[i] = w.Axis
				assert.Contains(t, logs.String(), "axis="+string(w.Axis))
			}
			assert.Equal(t, tc.expected, axes)
			assert.Contains(t, logs.String(), "level=WARN")
			// untouched axes keep their declared unit
			declared := map[ome.Axis]string{ome.AxisX: tc.attrs.unitX, ome.AxisY: tc.attrs.unitY}
			for _, axis := range axes {
				assert.Equal(t, declared[axis], report.Geometry.Physical(axis).Unit)
			}
		})
	}
}

func TestReconcileFatal(t *testing.T) {
	t.Parallel()

	md, err := ome.Parse([]byte(buildXML(pixelsAttrs{sizeC: "3", sizeZ: "1", channels: 2})))
	require.NoError(t, err)
	_, err = ome.Reconcile(md, nil)
	require.ErrorIs(t, err, ome.ErrMetadataInconsistent)

	md, err = ome.Parse([]byte(buildXML(pixelsAttrs{sizeC: "2", channels: 2})))
	require.NoError(t, err)
	_, err = ome.Reconcile(md, nil)
	require.ErrorIs(t, err, ome.ErrMetadataInconsistent)

	// a resolution computed against another image
	big := channel.NewCatalog(make([]channel.Channel, 5))
	var req channel.Request
	req.Add(channel.Nucleus, channel.SingleName(channel.DefaultID(4)))
	res, err := channel.Resolve(big, req)
	require.NoError(t, err)

	md, err = ome.Parse([]byte(buildXML(pixelsAttrs{sizeC: "2", sizeZ: "1", channels: 2})))
	require.NoError(t, err)
	_, err = ome.Reconcile(md, res)
	assert.ErrorIs(t, err, ome.ErrMetadataInconsistent)
}
