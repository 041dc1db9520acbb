package output

import (
	"fmt"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/robintw/AOT2PM/internal/pm25"
	"github.com/robintw/AOT2PM/internal/properties"
)

// valueToColor picks the colour of the highest breakpoint not above value.
func valueToColor(value float64) properties.Color {
	clr := properties.ColorMap[0].Color
	for _, brk := range properties.ColorMap {
		if value < brk.Min {
			break
		}
		clr = brk.Color
	}
	return clr
}

// CreatePreviewImage renders result as a PNG quicklook, one image pixel per
// raster pixel. NaN pixels stay transparent.
func CreatePreviewImage(result *pm25.Result, outputImagePath string) (string, error) {
	if !strings.HasSuffix(outputImagePath, ".png") {
		outputImagePath += ".png"
	}
	if result.Width == 0 || result.Height == 0 {
		return "", fmt.Errorf("cannot render empty %dx%d result", result.Width, result.Height)
	}

	dc := gg.NewContext(result.Width, result.Height)
	for y := 0; y < result.Height; y++ {
		for x := 0; x < result.Width; x++ {
			value := result.At(x, y)
			if math.IsNaN(value) {
				continue
			}
			clr := valueToColor(value)
			dc.SetRGB255(int(clr.R), int(clr.G), int(clr.B))
			dc.SetPixel(x, y)
		}
	}

	if err := dc.SavePNG(outputImagePath); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return outputImagePath, nil
}
