// Package raster is the GDAL boundary: it opens rasters, reads and writes
// bands and describes pixel grids. Everything else in the module works on the
// plain Go types defined here.
package raster

import (
	"math"

	"github.com/paulmach/orb"
)

// Grid is the pixel grid of a raster: its size, the affine geotransform
// mapping pixel to ground coordinates, and the projection as WKT.
type Grid struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	Projection   string
}

// Size is the number of pixels in the grid.
func (g Grid) Size() int {
	return g.Width * g.Height
}

// NorthUp reports whether the geotransform has no rotation terms and rows run
// from north to south.
func (g Grid) NorthUp() bool {
	gt := g.GeoTransform
	return gt[2] == 0 && gt[4] == 0 && gt[1] > 0 && gt[5] < 0
}

// PixelToGround converts pixel coordinates (column, row) to ground
// coordinates. Use x+0.5, y+0.5 for pixel centres.
func (g Grid) PixelToGround(x, y float64) (float64, float64) {
	gt := g.GeoTransform
	return gt[0] + gt[1]*x + gt[2]*y, gt[3] + gt[4]*x + gt[5]*y
}

// Bounds is the ground extent covered by the grid, in its own projection.
func (g Grid) Bounds() orb.Bound {
	w, h := float64(g.Width), float64(g.Height)
	bound := orb.Point(pair(g.PixelToGround(0, 0))).Bound()
	for _, corner := range [][2]float64{{w, 0}, {0, h}, {w, h}} {
		bound = bound.Extend(orb.Point(pair(g.PixelToGround(corner[0], corner[1]))))
	}
	return bound
}

func pair(x, y float64) [2]float64 {
	return [2]float64{x, y}
}

// Band is one raster band held in memory, row-major.
type Band struct {
	Grid
	Values    []float64
	NoData    float64
	HasNoData bool
}

// MaskNoData replaces every pixel equal to the no-data sentinel with NaN and
// returns how many were replaced. Bands without a sentinel are left alone.
func (b *Band) MaskNoData() int {
	if !b.HasNoData {
		return 0
	}
	masked := 0
	for i, v := range b.Values {
		if v == b.NoData {
			b.Values[i] = math.NaN()
			masked++
		}
	}
	return masked
}
