package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/urbansense/canopysim/pkg/sim"
)

// HeaderSnapshotID carries the snapshot's history id on each Kafka message.
const HeaderSnapshotID = "snapshot-id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one summary message per snapshot, keyed by site so a
// site's snapshots stay ordered on one partition.
type Kafka struct {
	w   messageWriter
	log *slog.Logger
}

// NewKafka creates a sink writing to topic on brokers.
func NewKafka(brokers []string, topic string, log *slog.Logger) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		log: log,
	}
}

// Name implements Sink.
func (k *Kafka) Name() string { return "kafka" }

// Publish implements Sink.
func (k *Kafka) Publish(ctx context.Context, id, siteID string, snap *sim.Snapshot) error {
	b, err := json.Marshal(summarize(id, siteID, snap))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(siteID),
		Value:   b,
		Time:    snap.GeneratedAt,
		Headers: []kafka.Header{{Key: HeaderSnapshotID, Value: []byte(id)}},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	k.log.Debug("published snapshot", "sink", "kafka", "site", siteID, "snapshotId", id, "bytes", len(b))
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error { return k.w.Close() }
