package eta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/robintw/AOT2PM/internal/raster"
	"github.com/sirupsen/logrus"
)

// DefaultCommand is the band extraction tool. It is looked up in the system
// path on each invocation.
const DefaultCommand = "gdal_translate"

// CommandBandExtractor runs gdal_translate (or a compatible tool) as a
// subprocess. Arguments are passed as a list, never through a shell.
type CommandBandExtractor struct {
	Command string
	Logger  logrus.FieldLogger
}

func NewCommandBandExtractor(command string, logger logrus.FieldLogger) *CommandBandExtractor {
	if command == "" {
		command = DefaultCommand
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CommandBandExtractor{Command: command, Logger: logger}
}

func (c *CommandBandExtractor) ExtractBand(ctx context.Context, src, dst string, band int) error {
	cmd := exec.CommandContext(ctx, c.Command, "-q", "-b", strconv.Itoa(band), "-of", "GTiff", src, dst)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.Logger.WithField("command", cmd.String()).Debug("running band extraction")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrExtractionFailed, c.Command, err, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("%w: %s exited cleanly but wrote no %s", ErrExtractionFailed, c.Command, dst)
	}
	return nil
}

// TranslateBandExtractor extracts the band in process through GDAL.
type TranslateBandExtractor struct{}

func (TranslateBandExtractor) ExtractBand(ctx context.Context, src, dst string, band int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := raster.ExtractBand(src, dst, band); err != nil {
		if errors.Is(err, raster.ErrBandOutOfRange) {
			return fmt.Errorf("%w: %w", ErrBandNotFound, err)
		}
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return nil
}

// WarpResampler regrids through GDAL warp using Method ("near", "bilinear",
// "cubic", "average", ...).
type WarpResampler struct {
	Method string
}

func (w WarpResampler) Resample(ctx context.Context, src, dst string, grid raster.Grid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !grid.NorthUp() {
		return fmt.Errorf("%w: geotransform %v", ErrUnsupportedGrid, grid.GeoTransform)
	}
	method := w.Method
	if method == "" {
		method = "bilinear"
	}
	return raster.Warp(src, dst, grid, method)
}
