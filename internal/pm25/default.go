package pm25

import (
	"context"

	"github.com/robintw/AOT2PM/internal/cache"
	"github.com/robintw/AOT2PM/internal/eta"
	"github.com/robintw/AOT2PM/internal/properties"
	"github.com/sirupsen/logrus"
)

// Default builds a converter from the PM25_* environment settings: the
// gdal_translate command line tool for band extraction, GDAL warp for
// resampling, and an eta cache only when PM25_CACHE_DIR is set.
func Default(logger logrus.FieldLogger) *Converter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	extractor := eta.New(
		eta.NewCommandBandExtractor(properties.GdalTranslateCommand(), logger),
		eta.WarpResampler{Method: properties.Resampling()},
		logger,
	)
	extractor.TempDir = properties.TempDir()
	if dir := properties.CacheDir(); dir != "" {
		extractor.Cache = cache.NewFileCache[eta.Entry](dir)
	}

	c := NewConverter(extractor, logger)
	c.Workers = properties.Workers()
	return c
}

// ConvertToPM25 converts with the Default converter. See Converter.Convert.
func ConvertToPM25(ctx context.Context, aotPath, etaPath string, month int, destPath string, opts ...Option) (*Result, error) {
	return Default(nil).Convert(ctx, aotPath, etaPath, month, destPath, opts...)
}
