package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqexport/aqexport/internal/pipeline"
)

// keyTimeFormat gives each run its own object key, so repeated runs never
// overwrite prior output.
const keyTimeFormat = "2006-01-02_15-04-05"

const csvContentType = "text/csv; charset=utf-8"

// PublisherConfig holds configuration for the publisher.
type PublisherConfig struct {
	Store  Store
	Bucket string
	Logger zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Publisher serializes a result set to CSV and stores it under a
// timestamp-derived key.
type Publisher struct {
	store  Store
	bucket string
	logger zerolog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher.
func NewPublisher(cfg PublisherConfig) *Publisher {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Publisher{
		store:  cfg.Store,
		bucket: cfg.Bucket,
		logger: cfg.Logger,
		now:    now,
	}
}

// Publish writes the records as a dated CSV object and returns its key.
// An empty record set produces no artifact and returns an empty key.
func (p *Publisher) Publish(ctx context.Context, records []pipeline.Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	data, err := EncodeCSV(records)
	if err != nil {
		return "", fmt.Errorf("encode csv: %w", err)
	}

	key := p.now().Format(keyTimeFormat) + ".csv"
	if err := p.store.Put(ctx, p.bucket, key, data, csvContentType); err != nil {
		return "", fmt.Errorf("store %s/%s: %w", p.bucket, key, err)
	}

	p.logger.Info().
		Str("bucket", p.bucket).
		Str("key", key).
		Int("records", len(records)).
		Int("bytes", len(data)).
		Msg("export artifact uploaded")

	return key, nil
}
