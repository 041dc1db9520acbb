package output

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/robintw/AOT2PM/internal/pm25"
)

// SummaryRow is one conversion run in the summary CSV. Bounds are in the
// projection of the AOT raster.
type SummaryRow struct {
	Time        string  `csv:"time"`
	AOT         string  `csv:"aot"`
	Eta         string  `csv:"eta"`
	Month       int     `csv:"month"`
	ScaleFactor float64 `csv:"scale_factor"`
	Dest        string  `csv:"dest"`
	Width       int     `csv:"width"`
	Height      int     `csv:"height"`
	MinX        float64 `csv:"min_x"`
	MinY        float64 `csv:"min_y"`
	MaxX        float64 `csv:"max_x"`
	MaxY        float64 `csv:"max_y"`
	Valid       int     `csv:"valid_pixels"`
	NoData      int     `csv:"nodata_pixels"`
	Min         float64 `csv:"pm25_min"`
	Max         float64 `csv:"pm25_max"`
	Mean        float64 `csv:"pm25_mean"`
}

func NewSummaryRow(aotPath, etaPath, destPath string, month int, scaleFactor float64, result *pm25.Result, at time.Time) SummaryRow {
	bounds := result.Bounds()
	stats := result.Stats()
	return SummaryRow{
		Time:        at.UTC().Format(time.RFC3339),
		AOT:         aotPath,
		Eta:         etaPath,
		Month:       month,
		ScaleFactor: scaleFactor,
		Dest:        destPath,
		Width:       result.Width,
		Height:      result.Height,
		MinX:        bounds.Min[0],
		MinY:        bounds.Min[1],
		MaxX:        bounds.Max[0],
		MaxY:        bounds.Max[1],
		Valid:       stats.Valid,
		NoData:      stats.NoData,
		Min:         stats.Min,
		Max:         stats.Max,
		Mean:        stats.Mean,
	}
}

func fileExists(filename string) bool {
	fi, err := os.Stat(filename)
	return err == nil && fi.Size() > 0
}

// AppendSummary appends row to the CSV at filePath, writing the header only
// when the file is new.
func AppendSummary(filePath string, row SummaryRow) error {
	rows := []SummaryRow{row}

	if fileExists(filePath) {
		file, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open summary file: %w", err)
		}
		defer file.Close()

		if err := gocsv.MarshalWithoutHeaders(&rows, file); err != nil {
			return fmt.Errorf("failed to append summary: %w", err)
		}
		return nil
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to save summary to file: %w", err)
	}
	return nil
}
