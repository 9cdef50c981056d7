// Package channel resolves a segmentation channel request against the channels
// recorded in an image.
//
// A Catalog indexes channels by id and by name. Resolve turns a Request, one
// Selection per role, into the acquisition indices of the channels that
// should be used for each role.
package channel
