package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqexport/aqexport/internal/pipeline"
)

func TestExpandSensors_OneRowPerSensor(t *testing.T) {
	stations := []pipeline.Station{
		{
			ID:       10,
			Name:     "Warszawa-Komunikacyjna",
			Locality: "Warszawa",
			Country:  "Poland",
			Timezone: "Europe/Warsaw",
			Sensors: []pipeline.Sensor{
				{ID: 101, RawName: "pm25 µg/m³"},
				{ID: 102, RawName: "no2 µg/m³"},
				{ID: 103, RawName: "o3 µg/m³"},
			},
		},
		{
			ID:      20,
			Name:    "Warszawa-Targówek",
			Sensors: []pipeline.Sensor{{ID: 201, RawName: "pm10 µg/m³"}},
		},
	}

	rows, malformed := pipeline.ExpandSensors(stations)
	require.Empty(t, malformed)
	require.Len(t, rows, 4)

	// Each row carries the owning station's metadata unchanged.
	assert.Equal(t, pipeline.StationRow{
		StationID: 10,
		Name:      "Warszawa-Komunikacyjna",
		Locality:  "Warszawa",
		Country:   "Poland",
		Timezone:  "Europe/Warsaw",
		SensorID:  101,
		Parameter: "pm25",
		Unit:      "µg/m³",
	}, rows[0])
	assert.Equal(t, int64(20), rows[3].StationID)
	assert.Equal(t, "pm10", rows[3].Parameter)
}

func TestExpandSensors_ParameterLowercasedUnitVerbatim(t *testing.T) {
	stations := []pipeline.Station{
		{ID: 1, Sensors: []pipeline.Sensor{{ID: 11, RawName: "NO2 µg/m³"}}},
	}

	rows, malformed := pipeline.ExpandSensors(stations)
	require.Empty(t, malformed)
	require.Len(t, rows, 1)
	assert.Equal(t, "no2", rows[0].Parameter)
	assert.Equal(t, "µg/m³", rows[0].Unit)
}

func TestExpandSensors_UnitKeepsRemainingSpaces(t *testing.T) {
	// Only the first space splits; everything after belongs to the unit.
	stations := []pipeline.Station{
		{ID: 1, Sensors: []pipeline.Sensor{{ID: 11, RawName: "temperature deg c"}}},
	}

	rows, malformed := pipeline.ExpandSensors(stations)
	require.Empty(t, malformed)
	require.Len(t, rows, 1)
	assert.Equal(t, "temperature", rows[0].Parameter)
	assert.Equal(t, "deg c", rows[0].Unit)
}

func TestExpandSensors_MalformedNameExcludedAndReported(t *testing.T) {
	stations := []pipeline.Station{
		{
			ID: 5,
			Sensors: []pipeline.Sensor{
				{ID: 51, RawName: "ozone"},
				{ID: 52, RawName: "pm25 µg/m³"},
			},
		},
	}

	rows, malformed := pipeline.ExpandSensors(stations)

	require.Len(t, rows, 1)
	assert.Equal(t, int64(52), rows[0].SensorID)

	require.Len(t, malformed, 1)
	var sensorErr *pipeline.MalformedSensorError
	require.ErrorAs(t, malformed[0], &sensorErr)
	assert.Equal(t, int64(5), sensorErr.StationID)
	assert.Equal(t, int64(51), sensorErr.SensorID)
	assert.Equal(t, "ozone", sensorErr.RawName)
}

func TestExpandSensors_EmptyInput(t *testing.T) {
	rows, malformed := pipeline.ExpandSensors(nil)
	assert.Empty(t, rows)
	assert.Empty(t, malformed)
}
