package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	bannercolor "github.com/fatih/color"
	"github.com/robintw/AOT2PM/internal/cache"
	"github.com/robintw/AOT2PM/internal/eta"
	"github.com/robintw/AOT2PM/internal/notification"
	"github.com/robintw/AOT2PM/internal/pm25"
	"github.com/robintw/AOT2PM/internal/properties"
	"github.com/robintw/AOT2PM/internal/raster"
	"github.com/robintw/AOT2PM/output"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type convertFlags struct {
	scaleFactor   float64
	extractor     string
	gdalTranslate string
	resampling    string
	cacheDir      string
	tempDir       string
	workers       int
	timeout       time.Duration
	summary       string
	preview       string
	footprint     string
	quiet         bool
	verbose       bool
}

func newConvertCmd() *cobra.Command {
	f := convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert AOT ETA MONTH DEST",
		Short: "Convert an AOT raster to PM2.5 with the eta band for MONTH (1-12)",
		Long: `Multiplies every AOT pixel by the scale factor and by the van Donkelaar
eta conversion factor for MONTH, resampled onto the AOT grid, and writes the
result to DEST in the same format as AOT. AOT no-data pixels become NaN.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, f)
		},
	}

	flags := cmd.Flags()
	flags.Float64VarP(&f.scaleFactor, "scale-factor", "s", 1, "factor converting stored AOT values to AOT units, e.g. 0.001")
	flags.StringVar(&f.extractor, "extractor", "command", "band extraction: 'command' (gdal_translate subprocess) or 'translate' (in process)")
	flags.StringVar(&f.gdalTranslate, "gdal-translate", properties.GdalTranslateCommand(), "band extraction command")
	flags.StringVar(&f.resampling, "resampling", properties.Resampling(), "GDAL warp resampling method")
	flags.StringVar(&f.cacheDir, "cache-dir", properties.CacheDir(), "cache resampled eta bands in this directory (disabled when empty)")
	flags.StringVar(&f.tempDir, "temp-dir", properties.TempDir(), "directory for temporary rasters")
	flags.IntVar(&f.workers, "workers", properties.Workers(), "parallel workers for the multiplication")
	flags.DurationVar(&f.timeout, "timeout", 0, "abort the conversion after this long (0 = no limit)")
	flags.StringVar(&f.summary, "summary", "", "append a run summary to this CSV file")
	flags.StringVar(&f.preview, "preview", "", "write a PNG quicklook to this file")
	flags.StringVar(&f.footprint, "footprint", "", "write the output extent as GeoJSON to this file")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "no banner or progress bar")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func newBandExtractor(kind, command string, logger logrus.FieldLogger) (eta.BandExtractor, error) {
	switch kind {
	case "command":
		return eta.NewCommandBandExtractor(command, logger), nil
	case "translate":
		return eta.TranslateBandExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown extractor %q, want 'command' or 'translate'", pm25.ErrInvalidArgument, kind)
	}
}

func runConvert(cmd *cobra.Command, args []string, f convertFlags) error {
	aotPath, etaPath, destPath := args[0], args[1], args[3]
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), f.verbose)

	month, err := pm25.ParseMonth(args[2])
	if err != nil {
		return err
	}
	bandExtractor, err := newBandExtractor(f.extractor, f.gdalTranslate, logger)
	if err != nil {
		return err
	}

	if !f.quiet {
		printBanner(out)
	}
	raster.RegisterDrivers()

	extractor := eta.New(bandExtractor, eta.WarpResampler{Method: f.resampling}, logger)
	extractor.TempDir = f.tempDir
	if f.cacheDir != "" {
		extractor.Cache = cache.NewFileCache[eta.Entry](f.cacheDir)
	}
	converter := pm25.NewConverter(extractor, logger)
	converter.Workers = f.workers

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	opts := []pm25.Option{pm25.WithScaleFactor(f.scaleFactor)}
	var bar *progressbar.ProgressBar
	if !f.quiet {
		opts = append(opts, pm25.WithProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "Converting")
			}
			bar.Set(done)
		}))
	}

	start := time.Now()
	result, err := converter.Convert(ctx, aotPath, etaPath, month, destPath, opts...)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		notify(logger, notification.SendDiscordErrorNotification(fmt.Sprintf("AOT2PM\n\nError converting %s: %s", aotPath, err.Error())))
		return err
	}

	row := output.NewSummaryRow(aotPath, etaPath, destPath, month, f.scaleFactor, result, start)
	if f.summary != "" {
		if err := output.AppendSummary(f.summary, row); err != nil {
			return err
		}
	}
	if f.preview != "" {
		if _, err := output.CreatePreviewImage(result, f.preview); err != nil {
			return err
		}
	}
	if f.footprint != "" {
		if _, err := output.CreateFootprintGeoJson(row, f.footprint); err != nil {
			return err
		}
	}

	stats := result.Stats()
	message := fmt.Sprintf("PM2.5 written to %s (%dx%d, %d valid pixels, mean %.2f) in %s",
		destPath, result.Width, result.Height, stats.Valid, stats.Mean, time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(out, bannercolor.GreenString(message))
	notify(logger, notification.SendDiscordSuccessNotification(fmt.Sprintf("AOT2PM\n\n%s", message)))
	return nil
}

func notify(logger logrus.FieldLogger, err error) {
	if err != nil {
		logger.WithError(err).Warn("failed to send notification")
	}
}
