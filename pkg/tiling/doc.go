// Package tiling splits a raster into a grid of overlapping, zero-padded
// tiles and puts the tiles back together.
//
// Every tile of a grid is stored with the same shape, tileH+2*overlap rows by
// tileW+2*overlap columns, whatever its position. Grid coordinates are
// 1-based and a tile name carries its coordinate, so tiles can be written and
// read independently and in any order.
package tiling
