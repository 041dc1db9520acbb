package main

import (
	"fmt"
	"io"
	"os"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/robintw/AOT2PM/internal/properties"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func printBanner(w io.Writer) {
	figure1 := figure.NewFigure("AOT2PM", "isometric1", true)
	fmt.Fprintln(w, bannercolor.CyanString(figure1.String()))
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(properties.LogLevel())
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aot2pm",
		Short:         "Convert Aerosol Optical Thickness rasters to PM2.5",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCmd())
	return root
}

func main() {
	// .env is optional; the environment itself always wins.
	if err := godotenv.Load(".env"); err != nil {
		godotenv.Load("../.env")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, bannercolor.RedString("Error: %s", err.Error()))
		os.Exit(1)
	}
}
