// Package pm25 converts Aerosol Optical Thickness rasters into PM2.5
// estimates using the monthly van Donkelaar eta conversion factors:
//
//	pm25 = aot * scaleFactor * eta[month]
//
// The output raster keeps the driver and pixel grid of the AOT input.
package pm25

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/robintw/AOT2PM/internal/eta"
	"github.com/robintw/AOT2PM/internal/raster"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidArgument = errors.New("invalid argument")

// RasterStore is the raster I/O used by the converter.
type RasterStore interface {
	ReadGrid(path string) (raster.Grid, error)
	ReadBand(path string, n int) (*raster.Band, error)
	CreateCopy(templatePath, destPath string, values []float64) (raster.Grid, error)
}

// EtaSource returns eta coefficients for month aligned with grid.
type EtaSource interface {
	Extract(ctx context.Context, aotPath, etaPath string, month int, grid raster.Grid) ([]float64, error)
}

// GDALStore is the RasterStore backed by GDAL.
type GDALStore struct{}

func (GDALStore) ReadGrid(path string) (raster.Grid, error) { return raster.ReadGrid(path) }
func (GDALStore) ReadBand(path string, n int) (*raster.Band, error) {
	return raster.ReadBand(path, n)
}
func (GDALStore) CreateCopy(templatePath, destPath string, values []float64) (raster.Grid, error) {
	return raster.CreateCopy(templatePath, destPath, values)
}

type Converter struct {
	Rasters RasterStore
	Eta     EtaSource
	Workers int
	Logger  logrus.FieldLogger
}

func NewConverter(etaSource EtaSource, logger logrus.FieldLogger) *Converter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Converter{
		Rasters: GDALStore{},
		Eta:     etaSource,
		Workers: runtime.NumCPU(),
		Logger:  logger,
	}
}

type options struct {
	scaleFactor float64
	progress    func(done, total int)
}

type Option func(*options)

// WithScaleFactor converts stored AOT values into real AOT units, e.g. 0.001
// for values stored as thousandths. Defaults to 1.
func WithScaleFactor(k float64) Option {
	return func(o *options) { o.scaleFactor = k }
}

// WithProgress is called with the number of rows multiplied so far.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) { o.progress = fn }
}

// ValidateMonth reports whether month is a calendar month number.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month must be an integer between 1 and 12, got %d", ErrInvalidArgument, month)
	}
	return nil
}

// ParseMonth parses a month given as text, e.g. on the command line.
func ParseMonth(s string) (int, error) {
	month, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: month must be an integer, got %q", ErrInvalidArgument, s)
	}
	if err := ValidateMonth(month); err != nil {
		return 0, err
	}
	return month, nil
}

func validate(etaPath string, month int, scaleFactor float64) error {
	if err := ValidateMonth(month); err != nil {
		return err
	}
	if math.IsNaN(scaleFactor) || math.IsInf(scaleFactor, 0) {
		return fmt.Errorf("%w: scale factor must be finite, got %v", ErrInvalidArgument, scaleFactor)
	}
	fi, err := os.Stat(etaPath)
	if err != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: eta path must be a valid path to the eta_Monthly file, got %q", ErrInvalidArgument, etaPath)
	}
	return nil
}

// Convert reads the AOT raster at aotPath, converts it to PM2.5 with the eta
// band for month from etaPath, writes the result to destPath in the AOT
// raster's format and returns it. Pixels equal to the AOT no-data value are
// NaN in the result.
func (c *Converter) Convert(ctx context.Context, aotPath, etaPath string, month int, destPath string, opts ...Option) (*Result, error) {
	o := options{scaleFactor: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validate(etaPath, month, o.scaleFactor); err != nil {
		return nil, err
	}

	log := c.Logger.WithFields(logrus.Fields{"aot": aotPath, "eta": etaPath, "month": month, "dest": destPath})

	grid, err := c.Rasters.ReadGrid(aotPath)
	if err != nil {
		return nil, err
	}

	var (
		aot      *raster.Band
		etaData  []float64
		noDataPx int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		band, err := c.Rasters.ReadBand(aotPath, 1)
		if err != nil {
			return err
		}
		noDataPx = band.MaskNoData()
		aot = band
		return nil
	})
	g.Go(func() error {
		values, err := c.Eta.Extract(gctx, aotPath, etaPath, month, grid)
		if err != nil {
			return err
		}
		etaData = values
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.WithField("nodata_pixels", noDataPx).Debug("AOT band read")

	if aot.Grid != grid {
		return nil, fmt.Errorf("%w: AOT band grid differs from raster grid", eta.ErrShapeMismatch)
	}
	if len(etaData) != len(aot.Values) {
		return nil, fmt.Errorf("%w: eta has %d pixels, AOT has %d", eta.ErrShapeMismatch, len(etaData), len(aot.Values))
	}

	values := multiply(aot.Values, etaData, o.scaleFactor, grid.Width, grid.Height, c.Workers, o.progress)

	if _, err := c.Rasters.CreateCopy(aotPath, destPath, values); err != nil {
		return nil, err
	}
	log.Info("PM2.5 raster written")

	return &Result{Grid: grid, Values: values}, nil
}

// multiply computes aot * k * eta elementwise. Rows are split into chunks on a
// worker pool; every element is computed the same way whatever the chunking.
func multiply(aot, etaData []float64, k float64, width, height, workers int, progress func(done, total int)) []float64 {
	out := make([]float64, len(aot))
	if height == 0 {
		return out
	}
	if workers < 1 {
		workers = 1
	}
	rowsPerChunk := max(1, height/(workers*4))

	var (
		mu   sync.Mutex
		done int
	)
	wp := workerpool.New(workers)
	for start := 0; start < height; start += rowsPerChunk {
		end := min(start+rowsPerChunk, height)
		wp.Submit(func() {
			for i := start * width; i < end*width; i++ {
				out[i] = aot[i] * k * etaData[i]
			}
			if progress != nil {
				mu.Lock()
				done += end - start
				progress(done, height)
				mu.Unlock()
			}
		})
	}
	wp.StopWait()
	return out
}
