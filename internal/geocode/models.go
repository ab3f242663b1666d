// Package geocode resolves city names to geographic coordinates.
package geocode

import (
	"context"
	"errors"
)

// ErrCityNotFound is returned when a city name cannot be resolved.
var ErrCityNotFound = errors.New("city not found")

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Resolver maps a city name to a geographic point.
type Resolver interface {
	// Resolve returns the point for the given city name, or ErrCityNotFound.
	Resolve(ctx context.Context, city string) (Point, error)
}

// DefaultCityPoints returns the built-in coordinate table for the default
// city list, so a stock deployment needs no geocoding credentials.
func DefaultCityPoints() map[string]Point {
	return map[string]Point{
		"Warszawa": {Lat: 52.2297, Lon: 21.0122},
		"Londyn":   {Lat: 51.5072, Lon: 0.1276},
	}
}
