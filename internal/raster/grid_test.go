package raster

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

var testGrid = Grid{
	Width:        4,
	Height:       2,
	GeoTransform: [6]float64{100, 0.5, 0, 50, 0, -0.25},
}

func TestGrid_Bounds(t *testing.T) {
	assert.Equal(t, orb.Bound{Min: orb.Point{100, 49.5}, Max: orb.Point{102, 50}}, testGrid.Bounds())
}

func TestGrid_NorthUp(t *testing.T) {
	assert.True(t, testGrid.NorthUp())

	rotated := testGrid
	rotated.GeoTransform[2] = 0.1
	assert.False(t, rotated.NorthUp())

	southUp := testGrid
	southUp.GeoTransform[5] = 0.25
	assert.False(t, southUp.NorthUp())
}

func TestGrid_PixelToGround(t *testing.T) {
	gx, gy := testGrid.PixelToGround(2.5, 1.5)
	assert.InDelta(t, 101.25, gx, 1e-12)
	assert.InDelta(t, 49.625, gy, 1e-12)
}

func TestBand_MaskNoData(t *testing.T) {
	band := &Band{
		Grid:      Grid{Width: 2, Height: 2},
		Values:    []float64{0.1, -9999, -9999, 0.4},
		NoData:    -9999,
		HasNoData: true,
	}

	assert.Equal(t, 2, band.MaskNoData())
	assert.Equal(t, 0.1, band.Values[0])
	assert.True(t, math.IsNaN(band.Values[1]))
	assert.True(t, math.IsNaN(band.Values[2]))
	assert.Equal(t, 0.4, band.Values[3])
}

func TestBand_MaskNoDataWithoutSentinel(t *testing.T) {
	band := &Band{Grid: Grid{Width: 2, Height: 1}, Values: []float64{0, -9999}}

	assert.Zero(t, band.MaskNoData())
	assert.Equal(t, []float64{0, -9999}, band.Values)
}

func TestWarpSwitches(t *testing.T) {
	assert.Equal(t, []string{
		"-te", "100", "49.5", "102", "50",
		"-ts", "4", "2",
		"-r", "near",
		"-ot", "Float64",
		"-of", "GTiff",
		"-overwrite",
	}, WarpSwitches(testGrid, "near"))

	projected := testGrid
	projected.Projection = "EPSG:4326"
	switches := WarpSwitches(projected, "bilinear")
	assert.Equal(t, []string{"-t_srs", "EPSG:4326"}, switches[:2])
}
