package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aqexport/aqexport/internal/geocode"
)

const tracerName = "github.com/aqexport/aqexport/internal/pipeline"

// StationLister is the station-listing capability: all stations within the
// given radius of a point, capped at limit.
type StationLister interface {
	ListStations(ctx context.Context, point geocode.Point, radiusMeters, limit int) ([]Station, error)
}

// Publisher stores the accumulated records and returns the object key, or
// an empty key when nothing was written.
type Publisher interface {
	Publish(ctx context.Context, records []Record) (string, error)
}

// Config holds the pipeline's collaborators and per-run settings.
type Config struct {
	Cities    []CityQuery
	Resolver  geocode.Resolver
	Stations  StationLister
	Readings  ReadingFetcher
	Publisher Publisher

	// MinStations is the minimum active-station coverage per city (default 3).
	MinStations int

	// TargetParameters is the exported pollutant set, lower-cased.
	// Defaults to no2, o3, pm10, pm25.
	TargetParameters map[string]struct{}

	// FetchConcurrency bounds the per-city reading fetch pool (default 3).
	FetchConcurrency int

	// Now overrides the clock, for tests.
	Now func() time.Time

	Logger zerolog.Logger
}

// Pipeline orchestrates the per-city export stages and the final publish.
type Pipeline struct {
	cfg     Config
	tracer  trace.Tracer
	metrics *Metrics
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID           string
	CitiesProcessed int
	CitiesSkipped   int
	Records         int
	ObjectKey       string
	Duration        time.Duration
}

// New creates a pipeline. Metrics may be nil when telemetry is disabled.
func New(cfg Config, metrics *Metrics) *Pipeline {
	if cfg.MinStations <= 0 {
		cfg.MinStations = DefaultMinStations
	}
	if cfg.TargetParameters == nil {
		cfg.TargetParameters = DefaultTargetParameters()
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = DefaultFetchConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{
		cfg:     cfg,
		tracer:  otel.Tracer(tracerName),
		metrics: metrics,
	}
}

// Run executes one export: every configured city in order, then a single
// publish. Cities that fail geocoding or station validation are skipped;
// the run still succeeds as long as infrastructure holds. Transport and
// storage failures fail the run.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := p.cfg.Now()
	runID := "run_" + uuid.New().String()[:8]

	log := p.cfg.Logger.With().Str("run_id", runID).Logger()

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.Int("cities", len(p.cfg.Cities))))
	defer span.End()

	result := &RunResult{RunID: runID}
	var records []Record

	log.Info().Int("cities", len(p.cfg.Cities)).Msg("starting export run")

	for _, city := range p.cfg.Cities {
		cityRecords, err := p.runCity(ctx, log, city)
		if err != nil {
			if isCitySkip(err) {
				log.Warn().Err(err).Str("city", city.Name).Msg("city skipped")
				result.CitiesSkipped++
				if p.metrics != nil {
					p.metrics.CitySkipped(ctx, city.Name)
				}
				continue
			}
			span.RecordError(err)
			return nil, fmt.Errorf("city %s: %w", city.Name, err)
		}

		records = append(records, cityRecords...)
		result.CitiesProcessed++
		if p.metrics != nil {
			p.metrics.CityProcessed(ctx, city.Name, len(cityRecords))
		}
	}

	result.Records = len(records)

	if len(records) == 0 {
		log.Warn().Msg("no records produced, skipping publish")
		result.Duration = p.cfg.Now().Sub(start)
		return result, nil
	}

	key, err := p.cfg.Publisher.Publish(ctx, records)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("publish results: %w", err)
	}
	result.ObjectKey = key
	result.Duration = p.cfg.Now().Sub(start)

	log.Info().
		Int("records", result.Records).
		Int("cities_processed", result.CitiesProcessed).
		Int("cities_skipped", result.CitiesSkipped).
		Str("object_key", key).
		Dur("duration", result.Duration).
		Msg("export run completed")

	return result, nil
}

// runCity executes the per-city stage sequence: resolve, locate, validate,
// expand, fetch, normalize.
func (p *Pipeline) runCity(ctx context.Context, log zerolog.Logger, city CityQuery) ([]Record, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.city",
		trace.WithAttributes(attribute.String("city", city.Name)))
	defer span.End()

	if city.RadiusMeters <= 0 || city.RadiusMeters > MaxRadiusMeters {
		// Preserved permissive behavior: warn and continue with the
		// supplied value rather than rejecting the city.
		log.Warn().
			Str("city", city.Name).
			Int("radius_m", city.RadiusMeters).
			Msgf("search radius outside (0, %d], proceeding anyway", MaxRadiusMeters)
	}

	point, err := p.cfg.Resolver.Resolve(ctx, city.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve coordinates: %w", err)
	}

	stations, err := p.cfg.Stations.ListStations(ctx, point, city.RadiusMeters, MaxPageSize)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	active, err := ValidateStations(stations, p.cfg.Now(), p.cfg.MinStations)
	if err != nil {
		return nil, err
	}

	rows, malformed := ExpandSensors(active)
	for _, sensorErr := range malformed {
		log.Warn().Err(sensorErr).Str("city", city.Name).Msg("sensor excluded")
	}

	readings, err := FetchReadings(ctx, p.cfg.Readings, active, p.cfg.FetchConcurrency)
	if err != nil {
		return nil, err
	}

	records, unmatched := Normalize(city.Name, readings, rows, p.cfg.TargetParameters)
	for _, joinErr := range unmatched {
		log.Warn().Err(joinErr).Str("city", city.Name).Msg("reading without sensor metadata")
	}

	log.Info().
		Str("city", city.Name).
		Int("stations", len(active)).
		Int("sensor_rows", len(rows)).
		Int("readings", len(readings)).
		Int("records", len(records)).
		Msg("city processed")

	return records, nil
}

// isCitySkip reports whether the error is a per-city recoverable condition.
func isCitySkip(err error) bool {
	return errors.Is(err, geocode.ErrCityNotFound) ||
		errors.Is(err, ErrNoActiveStations) ||
		errors.Is(err, ErrInsufficientStations)
}
