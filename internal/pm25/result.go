package pm25

import (
	"math"

	"github.com/robintw/AOT2PM/internal/raster"
)

// Result is the PM2.5 array returned by Convert, row-major on the AOT grid.
type Result struct {
	raster.Grid
	Values []float64
}

func (r *Result) At(x, y int) float64 {
	return r.Values[y*r.Width+x]
}

type Stats struct {
	Valid  int
	NoData int
	Min    float64
	Max    float64
	Mean   float64
}

// Stats summarises the result. NaN pixels count as no-data; Min, Max and
// Mean are NaN when no pixel is valid.
func (r *Result) Stats() Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range r.Values {
		if math.IsNaN(v) {
			s.NoData++
			continue
		}
		s.Valid++
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if s.Valid == 0 {
		s.Min, s.Max, s.Mean = math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean = sum / float64(s.Valid)
	return s
}
