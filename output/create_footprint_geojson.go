package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

func footprint(row SummaryRow) orb.Bound {
	return orb.Bound{
		Min: orb.Point{row.MinX, row.MinY},
		Max: orb.Point{row.MaxX, row.MaxY},
	}
}

// CreateFootprintGeoJson writes the extent of a conversion as a single
// polygon feature carrying the summary as properties. Coordinates are in the
// AOT raster's projection.
func CreateFootprintGeoJson(row SummaryRow, outputGeojsonPath string) (string, error) {
	if !strings.HasSuffix(outputGeojsonPath, ".geojson") {
		outputGeojsonPath += ".geojson"
	}

	polygon := footprint(row).ToPolygon()
	feature := geojson.NewFeature(polygon)
	feature.Properties["aot"] = row.AOT
	feature.Properties["eta"] = row.Eta
	feature.Properties["month"] = row.Month
	feature.Properties["scale_factor"] = row.ScaleFactor
	feature.Properties["dest"] = row.Dest
	feature.Properties["valid_pixels"] = row.Valid
	feature.Properties["nodata_pixels"] = row.NoData
	feature.Properties["area"] = planar.Area(polygon)
	if row.Valid > 0 {
		feature.Properties["pm25_min"] = row.Min
		feature.Properties["pm25_max"] = row.Max
		feature.Properties["pm25_mean"] = row.Mean
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(feature)

	data, err := fc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err := os.WriteFile(outputGeojsonPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write GeoJSON file: %w", err)
	}
	return outputGeojsonPath, nil
}
