package pipeline

import (
	"fmt"
	"time"
)

// DefaultMinStations is the minimum station coverage required per city.
const DefaultMinStations = 3

// ValidateStations applies the per-city station checks in order: first the
// freshness filter, then the minimum-coverage check.
//
// A station is fresh when its last-reported date, in UTC, is not before the
// current UTC date. If the freshness filter empties the set entirely the
// result is ErrNoActiveStations; if fewer than minStations survive the
// result is ErrInsufficientStations. Either way the returned set is empty,
// so callers see a size of 0 or >= minStations, never something in between.
func ValidateStations(stations []Station, now time.Time, minStations int) ([]Station, error) {
	if minStations <= 0 {
		minStations = DefaultMinStations
	}

	today := now.UTC().Truncate(24 * time.Hour)

	active := make([]Station, 0, len(stations))
	for _, s := range stations {
		if s.LastReported.IsZero() {
			continue
		}
		reported := s.LastReported.UTC().Truncate(24 * time.Hour)
		if reported.Before(today) {
			continue
		}
		active = append(active, s)
	}

	if len(active) == 0 {
		return nil, fmt.Errorf("%w: %d candidates, none reported since %s",
			ErrNoActiveStations, len(stations), today.Format("2006-01-02"))
	}
	if len(active) < minStations {
		return nil, fmt.Errorf("%w: %d active, need at least %d",
			ErrInsufficientStations, len(active), minStations)
	}

	return active, nil
}
