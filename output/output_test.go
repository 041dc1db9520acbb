package output

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/robintw/AOT2PM/internal/pm25"
	"github.com/robintw/AOT2PM/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult() *pm25.Result {
	return &pm25.Result{
		Grid: raster.Grid{
			Width:        2,
			Height:       2,
			GeoTransform: [6]float64{10, 1, 0, 20, 0, -1},
		},
		Values: []float64{5, 40, math.NaN(), 300},
	}
}

func readSummary(t *testing.T, path string) []SummaryRow {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var rows []SummaryRow
	require.NoError(t, gocsv.UnmarshalFile(file, &rows))
	return rows
}

func TestValueToColor(t *testing.T) {
	assert.Equal(t, uint8(228), valueToColor(0).G)
	assert.Equal(t, uint8(228), valueToColor(-1).G)
	assert.Equal(t, uint8(126), valueToColor(40).G)
	assert.Equal(t, uint8(126), valueToColor(300).R)
}

func TestCreatePreviewImage(t *testing.T) {
	path, err := CreatePreviewImage(testResult(), filepath.Join(t.TempDir(), "preview"))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	_, _, _, a := img.At(0, 1).RGBA()
	assert.Zero(t, a, "NaN pixels are transparent")

	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, [3]uint32{0, 228 * 0x101, 0}, [3]uint32{r, g, b})
}

func TestCreatePreviewImage_Empty(t *testing.T) {
	_, err := CreatePreviewImage(&pm25.Result{}, filepath.Join(t.TempDir(), "empty.png"))
	assert.Error(t, err)
}

func TestAppendSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := NewSummaryRow("aot.tif", "eta.tif", "pm25.tif", 3, 0.5, testResult(), at)
	second := NewSummaryRow("aot2.tif", "eta.tif", "pm25_2.tif", 4, 1, testResult(), at)
	require.NoError(t, AppendSummary(path, first))
	require.NoError(t, AppendSummary(path, second))

	rows := readSummary(t, path)
	require.Len(t, rows, 2)

	assert.Equal(t, "2026-03-01T12:00:00Z", rows[0].Time)
	assert.Equal(t, 3, rows[0].Month)
	assert.Equal(t, 0.5, rows[0].ScaleFactor)
	assert.Equal(t, 3, rows[0].Valid)
	assert.Equal(t, 1, rows[0].NoData)
	assert.Equal(t, 5.0, rows[0].Min)
	assert.Equal(t, 300.0, rows[0].Max)
	assert.Equal(t, 10.0, rows[0].MinX)
	assert.Equal(t, 18.0, rows[0].MinY)
	assert.Equal(t, 12.0, rows[0].MaxX)
	assert.Equal(t, 20.0, rows[0].MaxY)
	assert.Equal(t, "aot2.tif", rows[1].AOT)
}

func TestCreateFootprintGeoJson(t *testing.T) {
	row := NewSummaryRow("aot.tif", "eta.tif", "pm25.tif", 3, 0.5, testResult(), time.Now())

	path, err := CreateFootprintGeoJson(row, filepath.Join(t.TempDir(), "footprint"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	assert.Equal(t, orb.Bound{Min: orb.Point{10, 18}, Max: orb.Point{12, 20}}, fc.Features[0].Geometry.Bound())
	assert.Equal(t, "aot.tif", fc.Features[0].Properties.MustString("aot"))
	assert.Equal(t, 3.0, fc.Features[0].Properties.MustFloat64("month"))
	assert.Equal(t, 300.0, fc.Features[0].Properties.MustFloat64("pm25_max"))
	assert.InDelta(t, 4.0, fc.Features[0].Properties.MustFloat64("area"), 1e-9)
}
