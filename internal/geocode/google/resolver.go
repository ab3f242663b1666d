// Package google provides a geocode.Resolver backed by the Google Geocoding API.
package google

import (
	"context"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/aqexport/aqexport/internal/geocode"
)

// The geocoder library keeps its API key in package state.
var keyMu sync.Mutex

// Resolver resolves city names through the Google Geocoding API.
type Resolver struct {
	apiKey string
}

// NewResolver creates a Google-backed resolver. The API key is required.
func NewResolver(apiKey string) *Resolver {
	return &Resolver{apiKey: apiKey}
}

// Resolve geocodes the city name. An empty or unmatched result maps to
// geocode.ErrCityNotFound so the caller can skip the city rather than fail.
func (r *Resolver) Resolve(_ context.Context, city string) (geocode.Point, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return geocode.Point{}, geocode.ErrCityNotFound
	}

	keyMu.Lock()
	defer keyMu.Unlock()
	geocoder.ApiKey = r.apiKey

	location, err := geocoder.Geocoding(geocoder.Address{City: city})
	if err != nil {
		// The library reports "no results" style failures as plain errors.
		return geocode.Point{}, geocode.ErrCityNotFound
	}

	return geocode.Point{Lat: location.Latitude, Lon: location.Longitude}, nil
}
