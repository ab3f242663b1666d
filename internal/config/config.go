// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aqexport/aqexport/internal/geocode"
	"github.com/aqexport/aqexport/internal/pipeline"
)

// ErrMissingAPIKey is returned when OPENAQ_API_KEY is not set. The run must
// abort before any network call is made.
var ErrMissingAPIKey = errors.New("OPENAQ_API_KEY not set")

// Defaults.
const (
	DefaultRadiusMeters = 10000
	DefaultBucket       = "openaq-weather-data"
)

// Config is the full configuration surface. Constructed once at startup
// and passed into the components that need it; nothing reads the
// environment after Load returns.
type Config struct {
	// OpenAQAPIKey authenticates against the measurement network API.
	OpenAQAPIKey string

	// Bucket is the object-storage bucket for export artifacts.
	Bucket string

	// Cities are the city names to export, in run order.
	Cities []string

	// CityCoordinates optionally pins cities to fixed coordinates,
	// bypassing geocoding for those entries.
	CityCoordinates map[string]geocode.Point

	// RadiusMeters is the station search radius around each city center.
	RadiusMeters int

	// MinStations is the minimum active-station coverage per city.
	MinStations int

	// TargetParameters is the exported pollutant set.
	TargetParameters []string

	// FetchConcurrency bounds the per-city reading fetch pool.
	FetchConcurrency int

	// FetchTimeout bounds each outbound API call.
	FetchTimeout time.Duration

	// GoogleGeocodingAPIKey enables the Google geocoding fallback when set.
	GoogleGeocodingAPIKey string

	// Pub/Sub trigger settings (worker).
	PubSubProjectID    string
	PubSubSubscription string

	// ScheduleInterval is the internal cron interval (worker schedule mode).
	ScheduleInterval time.Duration

	// WorkerMode selects the worker trigger: once, schedule or pubsub.
	WorkerMode string

	// Port is the HTTP listen port (server and worker health endpoint).
	Port string

	// Telemetry settings.
	Environment      string
	OTLPEndpoint     string
	TelemetryEnabled bool
}

// Load reads configuration from the environment, with an optional .env
// file for local development. A missing API key is the only fatal
// condition; everything else has a default.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal deployed case.
	_ = godotenv.Load()

	apiKey := os.Getenv("OPENAQ_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := &Config{
		OpenAQAPIKey:          apiKey,
		Bucket:                getenvDefault("EXPORT_BUCKET", DefaultBucket),
		Cities:                splitList(getenvDefault("CITIES", "Warszawa,Londyn")),
		RadiusMeters:          getenvInt("SEARCH_RADIUS_METERS", DefaultRadiusMeters),
		MinStations:           getenvInt("MIN_STATIONS", pipeline.DefaultMinStations),
		TargetParameters:      splitList(getenvDefault("TARGET_PARAMETERS", "no2,o3,pm10,pm25")),
		FetchConcurrency:      getenvInt("FETCH_CONCURRENCY", pipeline.DefaultFetchConcurrency),
		GoogleGeocodingAPIKey: os.Getenv("GOOGLE_GEOCODING_API_KEY"),
		PubSubProjectID:       os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription:    os.Getenv("PUBSUB_SUBSCRIPTION"),
		WorkerMode:            getenvDefault("WORKER_MODE", "once"),
		Port:                  getenvDefault("APP_PORT", "8080"),
		Environment:           getenvDefault("APP_ENV", "development"),
		OTLPEndpoint:          getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled:      os.Getenv("OTEL_ENABLED") == "true",
	}

	timeout, err := time.ParseDuration(getenvDefault("FETCH_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	cfg.FetchTimeout = timeout

	interval, err := time.ParseDuration(getenvDefault("SCHEDULE_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_INTERVAL: %w", err)
	}
	cfg.ScheduleInterval = interval

	coords, err := parseCityCoordinates(os.Getenv("CITY_COORDINATES"))
	if err != nil {
		return nil, err
	}
	// Env entries overlay the built-in table, matching names win.
	cfg.CityCoordinates = geocode.DefaultCityPoints()
	for name, p := range coords {
		cfg.CityCoordinates[name] = p
	}

	return cfg, nil
}

// Warnings reports non-fatal configuration problems. An out-of-range
// radius is warned about but kept, matching the established behavior of
// the export job.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.RadiusMeters <= 0 || c.RadiusMeters > pipeline.MaxRadiusMeters {
		warnings = append(warnings, fmt.Sprintf(
			"SEARCH_RADIUS_METERS=%d is outside (0, %d]; proceeding with the supplied value",
			c.RadiusMeters, pipeline.MaxRadiusMeters))
	}
	if len(c.Cities) == 0 {
		warnings = append(warnings, "CITIES is empty; the run will produce no output")
	}
	return warnings
}

// CityQueries builds the per-city pipeline inputs.
func (c *Config) CityQueries() []pipeline.CityQuery {
	queries := make([]pipeline.CityQuery, 0, len(c.Cities))
	for _, name := range c.Cities {
		queries = append(queries, pipeline.CityQuery{Name: name, RadiusMeters: c.RadiusMeters})
	}
	return queries
}

// TargetSet returns the pollutant set keyed by lower-cased parameter name.
func (c *Config) TargetSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.TargetParameters))
	for _, p := range c.TargetParameters {
		set[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return set
}

// parseCityCoordinates parses "Warszawa=52.2297:21.0122,Londyn=51.5072:0.1276".
func parseCityCoordinates(raw string) (map[string]geocode.Point, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	coords := make(map[string]geocode.Point)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, pair, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid CITY_COORDINATES entry %q", entry)
		}
		latStr, lonStr, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid CITY_COORDINATES entry %q", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in CITY_COORDINATES entry %q: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in CITY_COORDINATES entry %q: %w", entry, err)
		}
		coords[strings.TrimSpace(name)] = geocode.Point{Lat: lat, Lon: lon}
	}
	return coords, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
