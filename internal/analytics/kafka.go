package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/set-night/turbostart/internal/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events as JSON, keyed by telegram id so one user's
// events stay ordered within a partition.
type Kafka struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafka(cfg config.Analytics) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Topic:                  cfg.KafkaTopic,
			Balancer:               &kafka.Hash{},
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					slog.Warn("deliver analytics events", "error", err, "count", len(msgs))
				}
			},
		},
		now: time.Now,
	}
}

// New returns the Kafka sink when brokers are configured and Disabled
// otherwise.
func New(cfg config.Analytics) Sink {
	if !cfg.Enabled() {
		return Disabled{}
	}
	return NewKafka(cfg)
}

func (k *Kafka) Track(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = k.now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("encode analytics event", "error", err, "event", ev.Name)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.SinkPublishTimeout)
	defer cancel()

	msg := kafka.Message{Value: data, Time: ev.Timestamp}
	if ev.ExternalID != 0 {
		msg.Key = []byte(strconv.FormatInt(ev.ExternalID, 10))
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		slog.Warn("publish analytics event", "error", err, "event", ev.Name)
	}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
