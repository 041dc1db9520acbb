package raster

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	RegisterDrivers()
	os.Exit(m.Run())
}

func wgs84(t *testing.T) string {
	t.Helper()
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	require.NoError(t, err)
	defer sr.Close()
	wkt, err := sr.WKT()
	require.NoError(t, err)
	return wkt
}

func geoGrid(t *testing.T) Grid {
	return Grid{
		Width:        2,
		Height:       2,
		GeoTransform: [6]float64{10, 1, 0, 20, 0, -1},
		Projection:   wgs84(t),
	}
}

func TestCreateAndReadBand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aot.tif")
	grid := geoGrid(t)
	noData := -9999.0

	require.NoError(t, Create("GTiff", path, grid, [][]float64{{0.1, 0.2, -9999, 0.4}}, &noData))

	band, err := ReadBand(path, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, -9999, 0.4}, band.Values)
	assert.True(t, band.HasNoData)
	assert.Equal(t, -9999.0, band.NoData)
	assert.Equal(t, 2, band.Width)
	assert.Equal(t, 2, band.Height)
	assert.Equal(t, grid.GeoTransform, band.GeoTransform)
	assert.NotEmpty(t, band.Projection)

	readGrid, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, band.Grid, readGrid)
}

func TestReadBand_OutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.tif")
	require.NoError(t, Create("GTiff", path, geoGrid(t), [][]float64{{1, 2, 3, 4}}, nil))

	_, err := ReadBand(path, 2)
	assert.ErrorIs(t, err, ErrBandOutOfRange)

	_, err = ReadBand(path, 0)
	assert.ErrorIs(t, err, ErrBandOutOfRange)
}

func TestReadBand_MissingFile(t *testing.T) {
	_, err := ReadBand(filepath.Join(t.TempDir(), "missing.tif"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.tif")
}

func TestBandCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eta.tif")
	bands := make([][]float64, 12)
	for i := range bands {
		bands[i] = []float64{float64(i + 1), float64(i + 1), float64(i + 1), float64(i + 1)}
	}
	require.NoError(t, Create("GTiff", path, geoGrid(t), bands, nil))

	n, err := BandCount(path)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestCreateCopy_KeepsGridAndWritesNaN(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "aot.tif")
	dst := filepath.Join(dir, "pm25.tif")
	noData := -9999.0
	require.NoError(t, Create("GTiff", src, geoGrid(t), [][]float64{{0.1, 0.2, -9999, 0.4}}, &noData))

	want := []float64{0.1, 0.2, math.NaN(), 0.4}
	grid, err := CreateCopy(src, dst, want)
	require.NoError(t, err)

	srcGrid, err := ReadGrid(src)
	require.NoError(t, err)
	assert.Equal(t, srcGrid, grid)

	got, err := ReadBand(dst, 1)
	require.NoError(t, err)
	assert.Equal(t, srcGrid, got.Grid)
	assert.Equal(t, 0.1, got.Values[0])
	assert.Equal(t, 0.2, got.Values[1])
	assert.True(t, math.IsNaN(got.Values[2]))
	assert.Equal(t, 0.4, got.Values[3])
}

func TestCreateCopy_KeepsTemplateDriver(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "aot.bin")
	dst := filepath.Join(dir, "pm25.bin")
	noData := -9999.0
	require.NoError(t, Create("ENVI", src, geoGrid(t), [][]float64{{0.1, 0.2, -9999, 0.4}}, &noData))

	_, err := CreateCopy(src, dst, []float64{1, 2, math.NaN(), 4})
	require.NoError(t, err)

	srcDS, err := open(src)
	require.NoError(t, err)
	defer srcDS.Close()
	dstDS, err := open(dst)
	require.NoError(t, err)
	defer dstDS.Close()

	assert.Equal(t, "ENVI", srcDS.Driver().ShortName())
	assert.Equal(t, srcDS.Driver().ShortName(), dstDS.Driver().ShortName())

	got, err := ReadBand(dst, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Values[3])
	assert.True(t, math.IsNaN(got.Values[2]))
}

func TestCreateCopy_SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "aot.tif")
	require.NoError(t, Create("GTiff", src, geoGrid(t), [][]float64{{1, 2, 3, 4}}, nil))

	_, err := CreateCopy(src, filepath.Join(dir, "out.tif"), []float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size mismatch")
}

func TestExtractBand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "eta.tif")
	dst := filepath.Join(dir, "band.tif")
	require.NoError(t, Create("GTiff", src, geoGrid(t), [][]float64{{1, 1, 1, 1}, {2, 2, 2, 2}, {3, 3, 3, 3}}, nil))

	require.NoError(t, ExtractBand(src, dst, 3))

	n, err := BandCount(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	band, err := ReadBand(dst, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 3, 3}, band.Values)

	assert.ErrorIs(t, ExtractBand(src, dst, 4), ErrBandOutOfRange)
}

func TestWarp_OntoFinerGrid(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "coarse.tif")
	dst := filepath.Join(dir, "fine.tif")
	coarse := Grid{Width: 1, Height: 1, GeoTransform: [6]float64{10, 2, 0, 20, 0, -2}, Projection: wgs84(t)}
	require.NoError(t, Create("GTiff", src, coarse, [][]float64{{2}}, nil))

	target := geoGrid(t)
	require.NoError(t, Warp(src, dst, target, "near"))

	band, err := ReadBand(dst, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, band.Width)
	assert.Equal(t, 2, band.Height)
	assert.Equal(t, []float64{2, 2, 2, 2}, band.Values)
}

func TestWarp_RejectsRotatedGrid(t *testing.T) {
	rotated := geoGrid(t)
	rotated.GeoTransform[2] = 0.5

	err := Warp("unused.tif", filepath.Join(t.TempDir(), "out.tif"), rotated, "near")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not north-up")
}
