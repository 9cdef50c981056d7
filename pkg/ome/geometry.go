package ome

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// CanonicalDimensionOrder is the dimension order of reconciled metadata.
const CanonicalDimensionOrder = "XYZCT"

// Axis is a spatial axis carrying a physical pixel size.
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
)

// Length is a physical size. Missing parts are flagged so a partially
// declared size is never mistaken for a zero one.
type Length struct {
	Value    float64
	Unit     string
	HasValue bool
	HasUnit  bool
}

// Geometry is the structural description of the first image.
type Geometry struct {
	DimensionOrder string
	SizeX          int
	SizeY          int
	SizeZ          int
	SizeC          int
	SizeT          int
	PhysicalX      Length
	PhysicalY      Length
	Channels       int
}

// Physical returns the physical size of axis.
func (g Geometry) Physical(axis Axis) Length {
	if axis == AxisY {
		return g.PhysicalY
	}

	return g.PhysicalX
}

// Geometry reads the dimension counts and physical sizes of the first image.
// SizeC and SizeZ must be positive integers and SizeC must match the number
// of Channel records.
func (m *Metadata) Geometry() (Geometry, error) {
	pixels, err := m.pixels()
	if err != nil {
		return Geometry{}, err
	}

	geom := Geometry{
		DimensionOrder: pixels.SelectAttrValue("DimensionOrder", ""),
		Channels:       len(pixels.SelectElements("Channel")),
	}
	type intField struct {
		name string
		dst  *int
	}
	for _, f := range []intField{{"SizeC", &geom.SizeC}, {"SizeZ", &geom.SizeZ}} {
		ok, err := optionalInt(pixels, f.name, f.dst)
		if err != nil {
			return geom, err
		}
		if !ok {
			return geom, inconsistent(f.name, "missing")
		}
		if *f.dst <= 0 {
			return geom, inconsistent(f.name, "must be positive, got %d", *f.dst)
		}
	}
	for _, f := range []intField{{"SizeX", &geom.SizeX}, {"SizeY", &geom.SizeY}, {"SizeT", &geom.SizeT}} {
		if _, err := optionalInt(pixels, f.name, f.dst); err != nil {
			return geom, err
		}
	}
	if geom.SizeC != geom.Channels {
		return geom, inconsistent("SizeC", "declares %d channels but %d Channel records are present", geom.SizeC, geom.Channels)
	}

	geom.PhysicalX, err = physicalSize(pixels, AxisX)
	if err != nil {
		return geom, err
	}
	geom.PhysicalY, err = physicalSize(pixels, AxisY)
	if err != nil {
		return geom, err
	}

	return geom, nil
}

func optionalInt(el *etree.Element, name string, dst *int) (bool, error) {
	attr := el.SelectAttr(name)
	if attr == nil {
		return false, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(attr.Value))
	if err != nil {
		return false, inconsistent(name, "not an integer: %q", attr.Value)
	}
	*dst = value

	return true, nil
}

func physicalSize(pixels *etree.Element, axis Axis) (Length, error) {
	var length Length
	if unit := pixels.SelectAttr("PhysicalSize" + string(axis) + "Unit"); unit != nil && strings.TrimSpace(unit.Value) != "" {
		length.Unit = unit.Value
		length.HasUnit = true
	}
	size := pixels.SelectAttr("PhysicalSize" + string(axis))
	if size == nil || strings.TrimSpace(size.Value) == "" {
		return length, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(size.Value), 64)
	if err != nil {
		return length, inconsistent("PhysicalSize"+string(axis), "not a number: %q", size.Value)
	}
	length.Value = value
	length.HasValue = true

	return length, nil
}
