package ome

import "github.com/pkg/errors"

// PlaneRecord is one TiffData element.
type PlaneRecord struct {
	FirstT     int
	FirstC     int
	FirstZ     int
	IFD        int
	PlaneCount int
}

// PlaneIndex maps (channel, z) pairs to storage planes. Z varies fastest
// within a channel and IFDs are contiguous from 0.
type PlaneIndex struct {
	SizeC int
	SizeZ int
}

// ErrPlaneOutOfRange is returned for a coordinate or IFD outside the index.
var ErrPlaneOutOfRange = errors.New("plane out of range")

// Len returns the number of planes.
func (p PlaneIndex) Len() int {
	return p.SizeC * p.SizeZ
}

// IFD returns the storage plane of channel c at depth z.
func (p PlaneIndex) IFD(c, z int) (int, error) {
	if c < 0 || c >= p.SizeC || z < 0 || z >= p.SizeZ {
		return 0, errors.Wrapf(ErrPlaneOutOfRange, "c=%d z=%d", c, z)
	}

	return c*p.SizeZ + z, nil
}

// Coord returns the channel and depth stored at ifd.
func (p PlaneIndex) Coord(ifd int) (int, int, error) {
	if ifd < 0 || ifd >= p.Len() {
		return 0, 0, errors.Wrapf(ErrPlaneOutOfRange, "ifd=%d", ifd)
	}

	return ifd / p.SizeZ, ifd % p.SizeZ, nil
}

// Records returns one record per plane in IFD order.
func (p PlaneIndex) Records() []PlaneRecord {
	records := make([]PlaneRecord, 0, p.Len())
	for c := 0; c < p.SizeC; c++ {
		for z := 0; z < p.SizeZ; z++ {
			records = append(records, PlaneRecord{
				FirstC:     c,
				FirstZ:     z,
				IFD:        len(records),
				PlaneCount: 1,
			})
		}
	}

	return records
}
