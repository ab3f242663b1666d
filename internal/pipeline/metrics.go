package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/aqexport/aqexport/internal/pipeline"

// Metrics holds the OpenTelemetry instruments for pipeline runs.
type Metrics struct {
	citiesProcessed metric.Int64Counter
	citiesSkipped   metric.Int64Counter
	recordsExported metric.Int64Counter
}

// NewMetrics creates the pipeline metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	citiesProcessed, err := meter.Int64Counter(
		"pipeline.cities.processed",
		metric.WithDescription("Cities that contributed records to an export run"),
		metric.WithUnit("{city}"),
	)
	if err != nil {
		return nil, err
	}

	citiesSkipped, err := meter.Int64Counter(
		"pipeline.cities.skipped",
		metric.WithDescription("Cities skipped due to geocoding or validation failures"),
		metric.WithUnit("{city}"),
	)
	if err != nil {
		return nil, err
	}

	recordsExported, err := meter.Int64Counter(
		"pipeline.records.exported",
		metric.WithDescription("Normalized records written to the export artifact"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		citiesProcessed: citiesProcessed,
		citiesSkipped:   citiesSkipped,
		recordsExported: recordsExported,
	}, nil
}

// CityProcessed records a successfully processed city and its record count.
func (m *Metrics) CityProcessed(ctx context.Context, city string, records int) {
	attrs := metric.WithAttributes(attribute.String("city", city))
	m.citiesProcessed.Add(ctx, 1, attrs)
	m.recordsExported.Add(ctx, int64(records), attrs)
}

// CitySkipped records a skipped city.
func (m *Metrics) CitySkipped(ctx context.Context, city string) {
	m.citiesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("city", city)))
}
