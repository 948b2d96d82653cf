package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/traffic-dashboard/internal/aggregate"
	"github.com/couchcryptid/traffic-dashboard/internal/observability"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

const subscriberID = "kafka-publisher"

// Summarizer turns a snapshot into its dashboard summary.
type Summarizer interface {
	Get(snap store.Snapshot) aggregate.Summary
}

// SnapshotFeed delivers store snapshots to a subscriber channel.
type SnapshotFeed interface {
	Subscribe(id string, ch chan<- store.Snapshot) error
	Unsubscribe(id string) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes one summary message per ready snapshot version.
type Publisher struct {
	writer      messageWriter
	summaries   Summarizer
	logger      *slog.Logger
	metrics     *observability.Metrics
	lastVersion uint64
}

// NewPublisher creates a Kafka producer for the snapshot topic.
func NewPublisher(brokers []string, topic string, summaries Summarizer, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, summaries: summaries, logger: logger, metrics: metrics}
}

// Run publishes snapshots from feed until ctx is cancelled. Snapshots the
// feed drops while a write is in progress are skipped; the next delivered
// version carries the latest state.
func (p *Publisher) Run(ctx context.Context, feed SnapshotFeed) error {
	ch := make(chan store.Snapshot, 16)
	if err := feed.Subscribe(subscriberID, ch); err != nil {
		return fmt.Errorf("subscribe to snapshots: %w", err)
	}
	defer feed.Unsubscribe(subscriberID) //nolint:errcheck // only fails if never subscribed

	p.logger.Info("snapshot publisher started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot publisher stopping", "reason", ctx.Err())
			return nil
		case snap := <-ch:
			if err := p.Publish(ctx, snap); err != nil && ctx.Err() == nil {
				p.logger.Error("publish snapshot failed", "version", snap.Version, "error", err)
			}
		}
	}
}

// Publish writes the summary of snap if it is a new, fully loaded version.
// Other snapshots are ignored.
func (p *Publisher) Publish(ctx context.Context, snap store.Snapshot) error {
	if snap.Status != store.StatusReady || snap.Version <= p.lastVersion {
		return nil
	}

	msg, err := serializeToMessage(p.summaries.Get(snap))
	if err != nil {
		p.metrics.PublishErrors.Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("write snapshot summary: %w", err)
	}

	p.lastVersion = snap.Version
	p.metrics.SnapshotsPublished.Inc()
	p.logger.Debug("snapshot published", "version", snap.Version, "filter", snap.Filter().Key())
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Summary into a Kafka message keyed by filter.
func serializeToMessage(sum aggregate.Summary) (kafkago.Message, error) {
	data, err := json.Marshal(sum)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sum.Filter.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "version", Value: []byte(strconv.FormatUint(sum.Version, 10))},
			{Key: "status", Value: []byte(sum.Status)},
			{Key: "updated_at", Value: []byte(sum.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
