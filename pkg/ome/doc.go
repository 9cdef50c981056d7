// Package ome reads and rewrites the OME-XML structural metadata of an image.
//
// Reconcile produces the canonical description expected downstream: XYZCT
// dimension order, physical pixel sizes in a single unit, one TiffData record
// per (channel, z) plane and an annotation recording the segmentation
// channels.
package ome
