// Package pipeline implements the air-quality export pipeline: station
// discovery, validation, sensor expansion, latest-reading fetch and
// normalization into the flat export record schema.
package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Pipeline errors.
var (
	// ErrNoActiveStations means the freshness filter removed every station
	// for a city. This usually signals the measurement network being offline
	// rather than ordinary sparse coverage.
	ErrNoActiveStations = errors.New("no active stations")

	// ErrInsufficientStations means fewer active stations survived than the
	// configured minimum for a city.
	ErrInsufficientStations = errors.New("insufficient stations")
)

// MaxRadiusMeters is the upper bound for the station search radius.
const MaxRadiusMeters = 25000

// MaxPageSize caps the number of stations requested per city.
const MaxPageSize = 1000

// CityQuery identifies one city to export, with its station search radius.
// Constructed from configuration at startup; immutable afterwards.
type CityQuery struct {
	Name         string
	RadiusMeters int
}

// Sensor is one measuring instrument embedded in a station listing.
// RawName carries the provider's display name, e.g. "pm25 µg/m³", from
// which parameter and unit are derived.
type Sensor struct {
	ID      int64
	RawName string
}

// Station is a measurement station with its embedded sensor descriptors.
type Station struct {
	ID           int64
	Name         string
	Locality     string
	Country      string
	Timezone     string
	Latitude     float64
	Longitude    float64
	LastReported time.Time
	Sensors      []Sensor
}

// StationRow is one (station, sensor) pair produced by sensor expansion.
// It carries the owning station's metadata plus the parsed sensor fields
// and exists only to be joined onto readings.
type StationRow struct {
	StationID int64
	Name      string
	Locality  string
	Country   string
	Timezone  string
	SensorID  int64
	Parameter string
	Unit      string
}

// Reading is one latest measurement as returned by the network API.
// Timestamps are carried verbatim; they flow unchanged into the output.
type Reading struct {
	SensorID      int64
	Value         float64
	DatetimeUTC   string
	DatetimeLocal string
	Latitude      float64
	Longitude     float64
}

// Record is the flat output row. Field order is the wire contract of the
// CSV artifact.
type Record struct {
	City          string
	Latitude      float64
	Longitude     float64
	Parameter     string
	Value         float64
	Unit          string
	DatetimeUTC   string
	DatetimeLocal string
}

// MalformedSensorError reports a sensor whose display name could not be
// split into parameter and unit. The affected row is excluded; the city
// continues.
type MalformedSensorError struct {
	StationID int64
	SensorID  int64
	RawName   string
}

func (e *MalformedSensorError) Error() string {
	return fmt.Sprintf("malformed sensor name %q (station %d, sensor %d)", e.RawName, e.StationID, e.SensorID)
}

// DefaultTargetParameters is the pollutant set exported by default.
func DefaultTargetParameters() map[string]struct{} {
	return map[string]struct{}{
		"no2":  {},
		"o3":   {},
		"pm10": {},
		"pm25": {},
	}
}
