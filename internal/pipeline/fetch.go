package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// ReadingFetcher is the latest-readings capability: one call per station,
// returning the most recent reading per sensor. A station with no current
// readings yields an empty slice, not an error.
type ReadingFetcher interface {
	LatestReadings(ctx context.Context, stationID int64) ([]Reading, error)
}

// DefaultFetchConcurrency bounds the per-city fetch worker pool.
const DefaultFetchConcurrency = 3

type stationReadings struct {
	index    int
	readings []Reading
	err      error
}

// FetchReadings retrieves the latest readings for every station using a
// bounded worker pool. Fetches across stations are independent and
// read-only; results are reassembled in station submission order so the
// downstream merge never depends on arrival order. The first fetch error
// fails the whole city, since a transport failure is an infrastructure
// condition rather than missing data.
func FetchReadings(ctx context.Context, fetcher ReadingFetcher, stations []Station, concurrency int) ([]Reading, error) {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	if concurrency > len(stations) {
		concurrency = len(stations)
	}

	jobs := make(chan int, len(stations))
	results := make(chan stationReadings, len(stations))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					results <- stationReadings{index: idx, err: ctx.Err()}
				default:
					readings, err := fetcher.LatestReadings(ctx, stations[idx].ID)
					results <- stationReadings{index: idx, readings: readings, err: err}
				}
			}
		}()
	}

	for i := range stations {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	perStation := make([][]Reading, len(stations))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fetch readings for station %d: %w", stations[r.index].ID, r.err)
			}
			continue
		}
		perStation[r.index] = r.readings
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var all []Reading
	for _, readings := range perStation {
		all = append(all, readings...)
	}
	return all, nil
}
