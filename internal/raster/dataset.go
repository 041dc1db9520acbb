package raster

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"
)

// ErrBandOutOfRange is returned when a band index is not present in a raster.
var ErrBandOutOfRange = errors.New("band out of range")

// RegisterDrivers registers all GDAL drivers. Call it once before any other
// function of this package.
func RegisterDrivers() {
	godal.RegisterAll()
}

func open(path string) (*godal.Dataset, error) {
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", path, err)
	}
	return ds, nil
}

func gridOf(ds *godal.Dataset) (Grid, error) {
	geoTransform, err := ds.GeoTransform()
	if err != nil {
		return Grid{}, fmt.Errorf("failed to get GeoTransform: %w", err)
	}
	return Grid{
		Width:        ds.Structure().SizeX,
		Height:       ds.Structure().SizeY,
		GeoTransform: geoTransform,
		Projection:   ds.Projection(),
	}, nil
}

// ReadGrid returns the pixel grid of the raster at path.
func ReadGrid(path string) (Grid, error) {
	ds, err := open(path)
	if err != nil {
		return Grid{}, err
	}
	defer ds.Close()

	grid, err := gridOf(ds)
	if err != nil {
		return Grid{}, fmt.Errorf("%s: %w", path, err)
	}
	return grid, nil
}

// BandCount returns the number of bands in the raster at path.
func BandCount(path string) (int, error) {
	ds, err := open(path)
	if err != nil {
		return 0, err
	}
	defer ds.Close()
	return ds.Structure().NBands, nil
}

// ReadBand reads band n (1-based) of the raster at path as float64 values.
func ReadBand(path string, n int) (*Band, error) {
	ds, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	if n < 1 || n > ds.Structure().NBands {
		return nil, fmt.Errorf("%w: %s has %d bands, requested band %d", ErrBandOutOfRange, path, ds.Structure().NBands, n)
	}

	grid, err := gridOf(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	band := ds.Bands()[n-1]
	data := make([]float64, grid.Size())
	if err := band.Read(0, 0, data, grid.Width, grid.Height); err != nil {
		return nil, fmt.Errorf("failed to read band %d of %s: %w", n, path, err)
	}
	noData, ok := band.NoData()

	return &Band{
		Grid:      grid,
		Values:    data,
		NoData:    noData,
		HasNoData: ok,
	}, nil
}

// CreateCopy clones the raster at templatePath into destPath with the same
// driver, size, geotransform, projection and metadata, then overwrites band 1
// with values. Bands are stored as Float64 so NaN survives the write.
// A failure after destPath is created leaves the partial file behind.
func CreateCopy(templatePath, destPath string, values []float64) (Grid, error) {
	ds, err := open(templatePath)
	if err != nil {
		return Grid{}, err
	}
	defer ds.Close()

	grid, err := gridOf(ds)
	if err != nil {
		return Grid{}, fmt.Errorf("%s: %w", templatePath, err)
	}
	if len(values) != grid.Size() {
		return Grid{}, fmt.Errorf("data size mismatch: expected %d, got %d", grid.Size(), len(values))
	}

	driver := ds.Driver().ShortName()
	out, err := ds.Translate(destPath, []string{"-of", driver, "-ot", "Float64"})
	if err != nil {
		return Grid{}, fmt.Errorf("failed to create %s copy at %s: %w", driver, destPath, err)
	}

	if err := out.Bands()[0].Write(0, 0, values, grid.Width, grid.Height); err != nil {
		out.Close()
		return Grid{}, fmt.Errorf("failed to write band 1 of %s: %w", destPath, err)
	}
	if err := out.Close(); err != nil {
		return Grid{}, fmt.Errorf("failed to flush %s: %w", destPath, err)
	}
	return grid, nil
}

// Create writes a new raster with one Float64 band per entry of bands. If
// noData is not nil it is set on every band.
func Create(driver, path string, grid Grid, bands [][]float64, noData *float64) error {
	if len(bands) == 0 {
		return fmt.Errorf("no bands to write to %s", path)
	}
	for i, values := range bands {
		if len(values) != grid.Size() {
			return fmt.Errorf("band %d size mismatch: expected %d, got %d", i+1, grid.Size(), len(values))
		}
	}

	ds, err := godal.Create(godal.DriverName(driver), path, len(bands), godal.Float64, grid.Width, grid.Height)
	if err != nil {
		return fmt.Errorf("failed to create raster %s: %w", path, err)
	}
	if err := ds.SetGeoTransform(grid.GeoTransform); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set GeoTransform on %s: %w", path, err)
	}
	if grid.Projection != "" {
		if err := ds.SetProjection(grid.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set projection on %s: %w", path, err)
		}
	}

	for i, band := range ds.Bands() {
		if noData != nil {
			if err := band.SetNoData(*noData); err != nil {
				ds.Close()
				return fmt.Errorf("failed to set no-data on band %d of %s: %w", i+1, path, err)
			}
		}
		if err := band.Write(0, 0, bands[i], grid.Width, grid.Height); err != nil {
			ds.Close()
			return fmt.Errorf("failed to write band %d of %s: %w", i+1, path, err)
		}
	}
	return ds.Close()
}

// ExtractBand copies band n (1-based) of src into a single-band GeoTIFF at dst.
func ExtractBand(src, dst string, n int) error {
	ds, err := open(src)
	if err != nil {
		return err
	}
	defer ds.Close()

	if n < 1 || n > ds.Structure().NBands {
		return fmt.Errorf("%w: %s has %d bands, requested band %d", ErrBandOutOfRange, src, ds.Structure().NBands, n)
	}

	out, err := ds.Translate(dst, []string{"-b", strconv.Itoa(n), "-of", "GTiff"})
	if err != nil {
		return fmt.Errorf("failed to extract band %d of %s: %w", n, src, err)
	}
	return out.Close()
}

// Warp reprojects and regrids src onto grid, writing a single Float64 GeoTIFF
// at dst. Only north-up grids can be expressed as a warp target extent.
func Warp(src, dst string, grid Grid, resampling string) error {
	if !grid.NorthUp() {
		return fmt.Errorf("cannot warp onto grid with geotransform %v: not north-up", grid.GeoTransform)
	}

	ds, err := open(src)
	if err != nil {
		return err
	}
	defer ds.Close()

	out, err := ds.Warp(dst, WarpSwitches(grid, resampling))
	if err != nil {
		return fmt.Errorf("failed to warp %s: %w", src, err)
	}
	return out.Close()
}

// WarpSwitches are the gdalwarp switches that place the output exactly on grid.
func WarpSwitches(grid Grid, resampling string) []string {
	bounds := grid.Bounds()
	switches := []string{
		"-te", ftoa(bounds.Min[0]), ftoa(bounds.Min[1]), ftoa(bounds.Max[0]), ftoa(bounds.Max[1]),
		"-ts", strconv.Itoa(grid.Width), strconv.Itoa(grid.Height),
		"-r", resampling,
		"-ot", "Float64",
		"-of", "GTiff",
		"-overwrite",
	}
	if grid.Projection != "" {
		switches = append([]string{"-t_srs", grid.Projection}, switches...)
	}
	return switches
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
