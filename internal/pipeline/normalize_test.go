package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqexport/aqexport/internal/pipeline"
)

func targetSet() map[string]struct{} {
	return pipeline.DefaultTargetParameters()
}

func TestNormalize_JoinAndProjection(t *testing.T) {
	rows := []pipeline.StationRow{
		{StationID: 1, SensorID: 11, Parameter: "pm25", Unit: "µg/m³"},
		{StationID: 1, SensorID: 12, Parameter: "no2", Unit: "µg/m³"},
	}
	readings := []pipeline.Reading{
		{SensorID: 11, Value: 8.4, DatetimeUTC: "2025-08-15T10:00:00Z", DatetimeLocal: "2025-08-15T12:00:00+02:00", Latitude: 52.23, Longitude: 21.01},
		{SensorID: 12, Value: 21.7, DatetimeUTC: "2025-08-15T10:00:00Z", DatetimeLocal: "2025-08-15T12:00:00+02:00", Latitude: 52.23, Longitude: 21.01},
	}

	records, unmatched := pipeline.Normalize("Warszawa", readings, rows, targetSet())
	require.Empty(t, unmatched)
	require.Len(t, records, 2)

	assert.Equal(t, pipeline.Record{
		City:          "Warszawa",
		Latitude:      52.23,
		Longitude:     21.01,
		Parameter:     "pm25",
		Value:         8.4,
		Unit:          "µg/m³",
		DatetimeUTC:   "2025-08-15T10:00:00Z",
		DatetimeLocal: "2025-08-15T12:00:00+02:00",
	}, records[0])
	assert.Equal(t, "no2", records[1].Parameter)
}

func TestNormalize_FiltersToTargetParameters(t *testing.T) {
	rows := []pipeline.StationRow{
		{SensorID: 1, Parameter: "pm25", Unit: "µg/m³"},
		{SensorID: 2, Parameter: "so2", Unit: "µg/m³"},
		{SensorID: 3, Parameter: "co", Unit: "µg/m³"},
		{SensorID: 4, Parameter: "o3", Unit: "µg/m³"},
	}
	var readings []pipeline.Reading
	for id := int64(1); id <= 4; id++ {
		readings = append(readings, pipeline.Reading{SensorID: id, Value: float64(id)})
	}

	records, unmatched := pipeline.Normalize("Londyn", readings, rows, targetSet())
	require.Empty(t, unmatched)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Contains(t, []string{"no2", "o3", "pm10", "pm25"}, r.Parameter)
	}
}

func TestNormalize_UnmatchedReadingReportedNotDroppedAtJoin(t *testing.T) {
	rows := []pipeline.StationRow{
		{SensorID: 1, Parameter: "pm25", Unit: "µg/m³"},
	}
	readings := []pipeline.Reading{
		{SensorID: 1, Value: 5},
		{SensorID: 999, Value: 7}, // sensor catalog drift
	}

	records, unmatched := pipeline.Normalize("Warszawa", readings, rows, targetSet())

	// The unmatched reading survives the join with empty metadata and is
	// reported; the parameter filter then discards it, as an empty
	// parameter is not a target pollutant.
	require.Len(t, records, 1)
	require.Len(t, unmatched, 1)

	var joinErr *pipeline.UnmatchedSensorError
	require.ErrorAs(t, unmatched[0], &joinErr)
	assert.Equal(t, int64(999), joinErr.SensorID)
}

func TestNormalize_Deterministic(t *testing.T) {
	rows := []pipeline.StationRow{
		{SensorID: 1, Parameter: "pm25", Unit: "µg/m³"},
		{SensorID: 2, Parameter: "no2", Unit: "µg/m³"},
		{SensorID: 3, Parameter: "pm10", Unit: "µg/m³"},
	}
	readings := []pipeline.Reading{
		{SensorID: 3, Value: 30},
		{SensorID: 1, Value: 10},
		{SensorID: 2, Value: 20},
	}

	first, _ := pipeline.Normalize("Warszawa", readings, rows, targetSet())
	second, _ := pipeline.Normalize("Warszawa", readings, rows, targetSet())

	assert.Equal(t, first, second)
	// Arrival order of readings is preserved.
	assert.Equal(t, []float64{30, 10, 20}, []float64{first[0].Value, first[1].Value, first[2].Value})
}

func TestNormalize_DuplicateSensorRowsFirstWins(t *testing.T) {
	rows := []pipeline.StationRow{
		{SensorID: 1, Parameter: "pm25", Unit: "µg/m³"},
		{SensorID: 1, Parameter: "pm25", Unit: "ppm"},
	}
	readings := []pipeline.Reading{{SensorID: 1, Value: 1}}

	records, _ := pipeline.Normalize("Warszawa", readings, rows, targetSet())
	require.Len(t, records, 1)
	assert.Equal(t, "µg/m³", records[0].Unit)
}

func TestNormalize_EmptyReadings(t *testing.T) {
	records, unmatched := pipeline.Normalize("Warszawa", nil, nil, targetSet())
	assert.Empty(t, records)
	assert.Empty(t, unmatched)
}
