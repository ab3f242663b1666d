// Package worker runs export jobs from Pub/Sub messages or a cron schedule.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/aqexport/aqexport/internal/pipeline"
)

// Runner executes one export run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.RunResult, error)
}

// PubSubHandler handles Pub/Sub messages for the worker. A scheduled
// trigger (Cloud Scheduler publishing to a topic) is the intended producer.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	runner           Runner
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Runner           Runner
	Logger           zerolog.Logger
}

// ExportMessage represents an export job message.
type ExportMessage struct {
	JobType string `json:"job_type"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// One export run at a time; a run can take minutes across cities.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		runner:           cfg.Runner,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var exportMsg ExportMessage
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &exportMsg); err != nil {
			logger.Error().Err(err).Msg("failed to parse message")
			msg.Nack()
			return
		}
	}

	switch exportMsg.JobType {
	case "", "export":
		// An empty body is treated as a plain export trigger.
	default:
		logger.Warn().Str("job_type", exportMsg.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	result, err := h.runner.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("export run failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("cities_processed", result.CitiesProcessed).
		Int("cities_skipped", result.CitiesSkipped).
		Int("records", result.Records).
		Str("object_key", result.ObjectKey).
		Dur("duration", time.Since(startTime)).
		Msg("export job completed")

	msg.Ack()
}
