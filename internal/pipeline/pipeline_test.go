package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqexport/aqexport/internal/geocode"
	"github.com/aqexport/aqexport/internal/pipeline"
)

// mockLocator serves station sets keyed by coordinates.
type mockLocator struct {
	stations map[geocode.Point][]pipeline.Station
	err      error
}

func (m *mockLocator) ListStations(_ context.Context, point geocode.Point, _, _ int) ([]pipeline.Station, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stations[point], nil
}

// recordingPublisher captures what reaches the storage boundary.
type recordingPublisher struct {
	published [][]pipeline.Record
	key       string
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, records []pipeline.Record) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, records)
	return p.key, nil
}

var (
	warszawa = geocode.Point{Lat: 52.2297, Lon: 21.0122}
	londyn   = geocode.Point{Lat: 51.5072, Lon: 0.1276}
)

func freshStation(id int64, sensors ...pipeline.Sensor) pipeline.Station {
	return pipeline.Station{
		ID:           id,
		Name:         "Station",
		LastReported: testNow,
		Sensors:      sensors,
	}
}

func newTestPipeline(cfg pipeline.Config) *pipeline.Pipeline {
	cfg.Logger = zerolog.Nop()
	cfg.Now = func() time.Time { return testNow }
	return pipeline.New(cfg, nil)
}

func TestRun_SingleCity(t *testing.T) {
	// Five stations reported today, two sensors each: the validator
	// accepts all five, expansion yields ten rows, and ten readings
	// normalize into ten records.
	var stations []pipeline.Station
	fetcher := &mapFetcher{readings: map[int64][]pipeline.Reading{}}
	for i := int64(1); i <= 5; i++ {
		pm25 := pipeline.Sensor{ID: i * 100, RawName: "pm25 µg/m³"}
		no2 := pipeline.Sensor{ID: i*100 + 1, RawName: "no2 µg/m³"}
		stations = append(stations, freshStation(i, pm25, no2))
		fetcher.readings[i] = []pipeline.Reading{
			{SensorID: pm25.ID, Value: 10, Latitude: warszawa.Lat, Longitude: warszawa.Lon},
			{SensorID: no2.ID, Value: 20, Latitude: warszawa.Lat, Longitude: warszawa.Lon},
		}
	}

	publisher := &recordingPublisher{key: "2025-08-15_12-00-00.csv"}
	p := newTestPipeline(pipeline.Config{
		Cities:    []pipeline.CityQuery{{Name: "Warszawa", RadiusMeters: 10000}},
		Resolver:  geocode.NewStaticResolver(map[string]geocode.Point{"Warszawa": warszawa}),
		Stations:  &mockLocator{stations: map[geocode.Point][]pipeline.Station{warszawa: stations}},
		Readings:  fetcher,
		Publisher: publisher,
	})

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.CitiesProcessed)
	assert.Equal(t, 0, result.CitiesSkipped)
	assert.Equal(t, 10, result.Records)
	assert.Equal(t, "2025-08-15_12-00-00.csv", result.ObjectKey)

	require.Len(t, publisher.published, 1)
	for _, r := range publisher.published[0] {
		assert.Equal(t, "Warszawa", r.City)
		assert.Contains(t, []string{"pm25", "no2"}, r.Parameter)
	}
}

func TestRun_GeocodeFailureSkipsCity(t *testing.T) {
	stations := []pipeline.Station{
		freshStation(1, pipeline.Sensor{ID: 11, RawName: "pm25 µg/m³"}),
		freshStation(2, pipeline.Sensor{ID: 21, RawName: "pm25 µg/m³"}),
		freshStation(3, pipeline.Sensor{ID: 31, RawName: "pm25 µg/m³"}),
	}
	fetcher := &mapFetcher{readings: map[int64][]pipeline.Reading{
		1: {{SensorID: 11, Value: 1}},
		2: {{SensorID: 21, Value: 2}},
		3: {{SensorID: 31, Value: 3}},
	}}

	publisher := &recordingPublisher{key: "k.csv"}
	p := newTestPipeline(pipeline.Config{
		Cities: []pipeline.CityQuery{
			{Name: "Atlantis", RadiusMeters: 10000},
			{Name: "Londyn", RadiusMeters: 10000},
		},
		Resolver:  geocode.NewStaticResolver(map[string]geocode.Point{"Londyn": londyn}),
		Stations:  &mockLocator{stations: map[geocode.Point][]pipeline.Station{londyn: stations}},
		Readings:  fetcher,
		Publisher: publisher,
	})

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.CitiesSkipped)
	assert.Equal(t, 1, result.CitiesProcessed)
	assert.Equal(t, 3, result.Records)
}

func TestRun_InsufficientCoverageSkipsCity(t *testing.T) {
	stations := []pipeline.Station{
		freshStation(1, pipeline.Sensor{ID: 11, RawName: "pm25 µg/m³"}),
		freshStation(2, pipeline.Sensor{ID: 21, RawName: "pm25 µg/m³"}),
	}

	publisher := &recordingPublisher{}
	p := newTestPipeline(pipeline.Config{
		Cities:    []pipeline.CityQuery{{Name: "Warszawa", RadiusMeters: 10000}},
		Resolver:  geocode.NewStaticResolver(map[string]geocode.Point{"Warszawa": warszawa}),
		Stations:  &mockLocator{stations: map[geocode.Point][]pipeline.Station{warszawa: stations}},
		Readings:  &mapFetcher{},
		Publisher: publisher,
	})

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.CitiesSkipped)
	assert.Zero(t, result.Records)
	assert.Empty(t, publisher.published, "publisher must not be invoked for an empty result set")
}

func TestRun_EmptyResultSkipsPublish(t *testing.T) {
	publisher := &recordingPublisher{}
	p := newTestPipeline(pipeline.Config{
		Cities:    []pipeline.CityQuery{{Name: "Atlantis", RadiusMeters: 10000}},
		Resolver:  geocode.NewStaticResolver(nil),
		Stations:  &mockLocator{},
		Readings:  &mapFetcher{},
		Publisher: publisher,
	})

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, publisher.published)
	assert.Empty(t, result.ObjectKey)
}

func TestRun_CityOrderingPreserved(t *testing.T) {
	cityStations := func(base int64) []pipeline.Station {
		var out []pipeline.Station
		for i := int64(0); i < 3; i++ {
			out = append(out, freshStation(base+i, pipeline.Sensor{ID: (base + i) * 10, RawName: "pm25 µg/m³"}))
		}
		return out
	}
	fetcher := &mapFetcher{readings: map[int64][]pipeline.Reading{}}
	for _, base := range []int64{100, 200} {
		for i := int64(0); i < 3; i++ {
			fetcher.readings[base+i] = []pipeline.Reading{{SensorID: (base + i) * 10, Value: float64(base)}}
		}
	}

	publisher := &recordingPublisher{key: "k.csv"}
	p := newTestPipeline(pipeline.Config{
		Cities: []pipeline.CityQuery{
			{Name: "Warszawa", RadiusMeters: 10000},
			{Name: "Londyn", RadiusMeters: 10000},
		},
		Resolver: geocode.NewStaticResolver(map[string]geocode.Point{
			"Warszawa": warszawa,
			"Londyn":   londyn,
		}),
		Stations: &mockLocator{stations: map[geocode.Point][]pipeline.Station{
			warszawa: cityStations(100),
			londyn:   cityStations(200),
		}},
		Readings:  fetcher,
		Publisher: publisher,
	})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)
	records := publisher.published[0]
	require.Len(t, records, 6)
	for i, r := range records {
		if i < 3 {
			assert.Equal(t, "Warszawa", r.City)
		} else {
			assert.Equal(t, "Londyn", r.City)
		}
	}
}

func TestRun_MalformedSensorExcludedCityContinues(t *testing.T) {
	stations := []pipeline.Station{
		freshStation(1,
			pipeline.Sensor{ID: 11, RawName: "ozone"}, // no separator
			pipeline.Sensor{ID: 12, RawName: "pm25 µg/m³"},
		),
		freshStation(2, pipeline.Sensor{ID: 21, RawName: "pm25 µg/m³"}),
		freshStation(3, pipeline.Sensor{ID: 31, RawName: "pm25 µg/m³"}),
	}
	fetcher := &mapFetcher{readings: map[int64][]pipeline.Reading{
		1: {{SensorID: 11, Value: 1}, {SensorID: 12, Value: 2}},
		2: {{SensorID: 21, Value: 3}},
		3: {{SensorID: 31, Value: 4}},
	}}

	publisher := &recordingPublisher{key: "k.csv"}
	p := newTestPipeline(pipeline.Config{
		Cities:    []pipeline.CityQuery{{Name: "Warszawa", RadiusMeters: 10000}},
		Resolver:  geocode.NewStaticResolver(map[string]geocode.Point{"Warszawa": warszawa}),
		Stations:  &mockLocator{stations: map[geocode.Point][]pipeline.Station{warszawa: stations}},
		Readings:  fetcher,
		Publisher: publisher,
	})

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	// The malformed sensor's reading has no metadata row, so it is
	// reported and filtered; the other three survive.
	assert.Equal(t, 3, result.Records)
}

func TestRun_InfrastructureErrorFailsRun(t *testing.T) {
	transportErr := errors.New("network down")
	p := newTestPipeline(pipeline.Config{
		Cities:    []pipeline.CityQuery{{Name: "Warszawa", RadiusMeters: 10000}},
		Resolver:  geocode.NewStaticResolver(map[string]geocode.Point{"Warszawa": warszawa}),
		Stations:  &mockLocator{err: transportErr},
		Readings:  &mapFetcher{},
		Publisher: &recordingPublisher{},
	})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, transportErr)
	assert.Contains(t, err.Error(), "Warszawa")
}

func TestRun_PublishErrorFailsRun(t *testing.T) {
	stations := []pipeline.Station{
		freshStation(1, pipeline.Sensor{ID: 11, RawName: "pm25 µg/m³"}),
		freshStation(2, pipeline.Sensor{ID: 21, RawName: "pm25 µg/m³"}),
		freshStation(3, pipeline.Sensor{ID: 31, RawName: "pm25 µg/m³"}),
	}
	fetcher := &mapFetcher{readings: map[int64][]pipeline.Reading{
		1: {{SensorID: 11, Value: 1}},
		2: {{SensorID: 21, Value: 2}},
		3: {{SensorID: 31, Value: 3}},
	}}
	storageErr := errors.New("bucket not found")

	p := newTestPipeline(pipeline.Config{
		Cities:    []pipeline.CityQuery{{Name: "Warszawa", RadiusMeters: 10000}},
		Resolver:  geocode.NewStaticResolver(map[string]geocode.Point{"Warszawa": warszawa}),
		Stations:  &mockLocator{stations: map[geocode.Point][]pipeline.Station{warszawa: stations}},
		Readings:  fetcher,
		Publisher: &recordingPublisher{err: storageErr},
	})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, storageErr)
}
