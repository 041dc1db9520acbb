package properties

import (
	"os"
	"runtime"
	"strconv"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GdalTranslateCommand is the band extraction tool, looked up in PATH on each run.
func GdalTranslateCommand() string {
	return envOrDefault("PM25_GDAL_TRANSLATE", "gdal_translate")
}

func TempDir() string {
	return envOrDefault("PM25_TEMP_DIR", os.TempDir())
}

// CacheDir returns the eta cache directory. Empty disables caching.
func CacheDir() string {
	return os.Getenv("PM25_CACHE_DIR")
}

func Resampling() string {
	return envOrDefault("PM25_RESAMPLING", "bilinear")
}

func Workers() int {
	if s := os.Getenv("PM25_WORKERS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

func LogLevel() string {
	return envOrDefault("PM25_LOG_LEVEL", "info")
}

type Color struct {
	R, G, B uint8
}

// ColorBreak maps PM2.5 concentrations from Min (µg/m³) upwards to a colour.
type ColorBreak struct {
	Min   float64
	Color Color
}

// ColorMap follows the US EPA 24h PM2.5 AQI breakpoints, ascending.
var ColorMap = []ColorBreak{
	{0, Color{0, 228, 0}},
	{12.1, Color{255, 255, 0}},
	{35.5, Color{255, 126, 0}},
	{55.5, Color{255, 0, 0}},
	{150.5, Color{143, 63, 151}},
	{250.5, Color{126, 0, 35}},
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}
func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
