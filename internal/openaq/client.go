// Package openaq provides a client for the OpenAQ v3 API.
package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aqexport/aqexport/internal/geocode"
	"github.com/aqexport/aqexport/internal/pipeline"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ v3 API.
	DefaultBaseURL = "https://api.openaq.org/v3"

	// ProviderName identifies this provider.
	ProviderName = "openaq"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// APIKey is the OpenAQ API key (required), sent as X-API-Key.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a plain client with
	// Timeout is used.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s). A batch job
	// with an unbounded call is a latent failure mode, so the default
	// always applies when no client is supplied.
	Timeout time.Duration
}

// Client is an OpenAQ v3 API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API response types (from the OpenAQ v3 API).

type locationsResponse struct {
	Results []locationData `json:"results"`
}

type locationData struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Locality     string          `json:"locality"`
	Timezone     string          `json:"timezone"`
	Country      countryData     `json:"country"`
	Coordinates  coordinatesData `json:"coordinates"`
	Sensors      []sensorData    `json:"sensors"`
	DatetimeLast *datetimeData   `json:"datetimeLast"`
}

type countryData struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type coordinatesData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type sensorData struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type datetimeData struct {
	UTC   string `json:"utc"`
	Local string `json:"local"`
}

type latestResponse struct {
	Results []latestData `json:"results"`
}

type latestData struct {
	SensorsID   int64           `json:"sensorsId"`
	LocationsID int64           `json:"locationsId"`
	Value       float64         `json:"value"`
	Datetime    datetimeData    `json:"datetime"`
	Coordinates coordinatesData `json:"coordinates"`
}

// ListStations retrieves all stations within radiusMeters of the point,
// capped at limit results. The caller owns radius validation; this layer
// passes the value through and does not retry.
func (c *Client) ListStations(ctx context.Context, point geocode.Point, radiusMeters, limit int) ([]pipeline.Station, error) {
	url := fmt.Sprintf("%s/locations?coordinates=%.4f,%.4f&radius=%d&limit=%d",
		c.baseURL, point.Lat, point.Lon, radiusMeters, limit)

	var result locationsResponse
	if err := c.get(ctx, url, &result); err != nil {
		return nil, fmt.Errorf("fetch locations: %w", err)
	}

	stations := make([]pipeline.Station, 0, len(result.Results))
	for _, loc := range result.Results {
		stations = append(stations, toStation(loc))
	}
	return stations, nil
}

// LatestReadings retrieves the most recent reading per sensor for one
// station. An empty result is normal, not an error.
func (c *Client) LatestReadings(ctx context.Context, stationID int64) ([]pipeline.Reading, error) {
	url := fmt.Sprintf("%s/locations/%d/latest", c.baseURL, stationID)

	var result latestResponse
	if err := c.get(ctx, url, &result); err != nil {
		return nil, fmt.Errorf("fetch latest readings: %w", err)
	}

	readings := make([]pipeline.Reading, 0, len(result.Results))
	for _, latest := range result.Results {
		readings = append(readings, toReading(latest))
	}
	return readings, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toStation(loc locationData) pipeline.Station {
	station := pipeline.Station{
		ID:        loc.ID,
		Name:      loc.Name,
		Locality:  loc.Locality,
		Country:   loc.Country.Name,
		Timezone:  loc.Timezone,
		Latitude:  loc.Coordinates.Latitude,
		Longitude: loc.Coordinates.Longitude,
	}
	if loc.DatetimeLast != nil {
		if t, err := time.Parse(time.RFC3339, loc.DatetimeLast.UTC); err == nil {
			station.LastReported = t
		}
	}
	for _, s := range loc.Sensors {
		station.Sensors = append(station.Sensors, pipeline.Sensor{ID: s.ID, RawName: s.Name})
	}
	return station
}

func toReading(latest latestData) pipeline.Reading {
	return pipeline.Reading{
		SensorID:      latest.SensorsID,
		Value:         latest.Value,
		DatetimeUTC:   latest.Datetime.UTC,
		DatetimeLocal: latest.Datetime.Local,
		Latitude:      latest.Coordinates.Latitude,
		Longitude:     latest.Coordinates.Longitude,
	}
}
