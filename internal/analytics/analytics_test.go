package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/config"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestNew_DisabledWithoutBrokers(t *testing.T) {
	sink := New(config.Analytics{})
	assert.IsType(t, Disabled{}, sink)
	assert.NotPanics(t, func() { sink.Track(context.Background(), Event{Name: EventArtifactCreated}) })
	assert.NoError(t, sink.Close())

	assert.IsType(t, &Kafka{}, New(config.Analytics{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}))
}

func TestKafka_Track(t *testing.T) {
	w := &fakeWriter{}
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	k := &Kafka{writer: w, now: func() time.Time { return fixed }}

	k.Track(context.Background(), Event{
		Name:       EventArtifactCreated,
		ExternalID: 42,
		Properties: map[string]any{"taskId": 7},
	})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("42"), w.msgs[0].Key)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, EventArtifactCreated, got["event"])
	assert.Equal(t, float64(42), got["telegramId"])
	assert.Equal(t, "2025-03-01T12:00:00Z", got["timestamp"])
}

func TestKafka_TrackSwallowsErrors(t *testing.T) {
	k := &Kafka{writer: &fakeWriter{err: errors.New("broker down")}, now: time.Now}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { k.Track(ctx, Event{Name: EventReferralCredited}) })
}
