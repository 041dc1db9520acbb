// Package eta extracts the monthly AOT to PM2.5 conversion factor from the
// van Donkelaar eta_Monthly raster and resamples it onto an AOT pixel grid.
package eta

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robintw/AOT2PM/internal/cache"
	"github.com/robintw/AOT2PM/internal/raster"
	"github.com/sirupsen/logrus"
)

var (
	ErrExtractionFailed = errors.New("extraction failed")
	ErrBandNotFound     = errors.New("band not found")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrUnsupportedGrid  = errors.New("unsupported grid")
)

// BandExtractor copies a single band (1-based) of src into a new raster at dst.
type BandExtractor interface {
	ExtractBand(ctx context.Context, src, dst string, band int) error
}

// Resampler regrids the raster at src onto grid, writing the result at dst.
type Resampler interface {
	Resample(ctx context.Context, src, dst string, grid raster.Grid) error
}

// Entry is a resampled eta band as kept in the cache.
type Entry struct {
	Width  int
	Height int
	Values []float64
}

// Extractor produces eta arrays aligned pixel for pixel with an AOT grid.
// Temporary rasters live in a private directory under TempDir for the
// duration of one call. A nil Cache disables caching.
type Extractor struct {
	BandExtractor BandExtractor
	Resampler     Resampler
	TempDir       string
	Cache         cache.CacheService[Entry]
	Logger        logrus.FieldLogger
}

func New(bandExtractor BandExtractor, resampler Resampler, logger logrus.FieldLogger) *Extractor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Extractor{
		BandExtractor: bandExtractor,
		Resampler:     resampler,
		TempDir:       os.TempDir(),
		Logger:        logger,
	}
}

// Extract returns the eta band for month resampled onto grid, the grid of
// the AOT raster at aotPath.
func (e *Extractor) Extract(ctx context.Context, aotPath, etaPath string, month int, grid raster.Grid) ([]float64, error) {
	log := e.Logger.WithFields(logrus.Fields{"aot": aotPath, "eta": etaPath, "month": month})

	if !grid.NorthUp() {
		return nil, fmt.Errorf("%w: %s has geotransform %v", ErrUnsupportedGrid, aotPath, grid.GeoTransform)
	}

	nBands, err := raster.BandCount(etaPath)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > nBands {
		return nil, fmt.Errorf("%w: %s has %d bands, month %d requested", ErrBandNotFound, etaPath, nBands, month)
	}

	var key string
	if e.Cache != nil {
		key, err = e.cacheKey(etaPath, month, grid)
		if err != nil {
			log.WithError(err).Warn("eta cache disabled for this call")
		} else if entry, ok := e.Cache.Get(key); ok {
			if entry.Width == grid.Width && entry.Height == grid.Height && len(entry.Values) == grid.Size() {
				log.WithField("key", key).Debug("eta cache hit")
				return entry.Values, nil
			}
			log.WithField("key", key).Warn("evicting eta cache entry with wrong shape")
			if err := e.Cache.Delete(key); err != nil {
				log.WithError(err).Warn("failed to evict eta cache entry")
			}
		}
	}

	values, err := e.extract(ctx, log, etaPath, month, grid)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := e.Cache.Set(key, Entry{Width: grid.Width, Height: grid.Height, Values: values}); err != nil {
			log.WithError(err).Warn("failed to cache eta band")
		}
	}
	return values, nil
}

func (e *Extractor) extract(ctx context.Context, log logrus.FieldLogger, etaPath string, month int, grid raster.Grid) ([]float64, error) {
	dir, err := os.MkdirTemp(e.TempDir, "pm25-eta-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.WithError(err).Warnf("failed to remove temporary directory %s", dir)
		}
	}()

	bandPath := filepath.Join(dir, "eta_band.tif")
	resampledPath := filepath.Join(dir, "eta_band_resampled.tif")

	log.WithField("dst", bandPath).Debug("extracting eta band")
	if err := e.BandExtractor.ExtractBand(ctx, etaPath, bandPath, month); err != nil {
		return nil, err
	}

	log.WithField("dst", resampledPath).Debug("resampling eta band")
	if err := e.Resampler.Resample(ctx, bandPath, resampledPath, grid); err != nil {
		return nil, fmt.Errorf("failed to resample eta band %d: %w", month, err)
	}

	band, err := raster.ReadBand(resampledPath, 1)
	if err != nil {
		return nil, err
	}
	if band.Width != grid.Width || band.Height != grid.Height {
		return nil, fmt.Errorf("%w: resampled eta is %dx%d, AOT grid is %dx%d", ErrShapeMismatch, band.Width, band.Height, grid.Width, grid.Height)
	}
	return band.Values, nil
}

// cacheKey changes whenever the eta file is rewritten, since its size or
// modification time changes with it.
func (e *Extractor) cacheKey(etaPath string, month int, grid raster.Grid) (string, error) {
	abs, err := filepath.Abs(etaPath)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	return e.Cache.GenerateKey(
		abs, fi.Size(), fi.ModTime().UnixNano(), month,
		grid.Width, grid.Height, grid.GeoTransform, grid.Projection,
		fmt.Sprintf("%T%+v", e.Resampler),
	), nil
}
