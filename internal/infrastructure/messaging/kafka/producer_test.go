package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/config"
	"github.com/jasmincar/milo-lab/internal/testutil"
	apperrors "github.com/jasmincar/milo-lab/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	written   []kafka.Message
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func newTestProducer(w WriterInterface) *Producer {
	return NewProducerWithWriter(w, ProducerConfig{Brokers: []string{"localhost:9092"}}, testutil.NewMockLogger())
}

func newTestProducerMessage(topic, key, value string) *ProducerMessage {
	return &ProducerMessage{Topic: topic, Key: []byte(key), Value: []byte(value)}
}

func TestValidateProducerConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     ProducerConfig
		wantErr bool
	}{
		{"valid", ProducerConfig{Brokers: []string{"b:9092"}}, false},
		{"no brokers", ProducerConfig{}, true},
		{"negative attempts", ProducerConfig{Brokers: []string{"b:9092"}, MaxAttempts: -1}, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateProducerConfig(tc.cfg)
			if tc.wantErr {
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProducerConfigFrom(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	pc := ProducerConfigFrom(cfg.Messaging.Kafka)
	assert.Equal(t, []string{config.DefaultKafkaBroker}, pc.Brokers)
	assert.Equal(t, -1, pc.RequiredAcks)
	assert.Equal(t, 3, pc.MaxAttempts)
	assert.Equal(t, kafka.RequireAll, requiredAcks(pc.RequiredAcks))
	assert.Equal(t, kafka.RequireNone, requiredAcks(0))
	assert.Equal(t, kafka.RequireOne, requiredAcks(1))
}

func TestPublish_Success(t *testing.T) {
	t.Parallel()
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	msg := newTestProducerMessage("gibbs.test", "batch-1", `{"rows":3}`)
	msg.Headers = map[string]string{"event_type": "x"}
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, w.written, 1)
	assert.Equal(t, "gibbs.test", w.written[0].Topic)
	assert.Equal(t, "batch-1", string(w.written[0].Key))
	assert.Equal(t, `{"rows":3}`, string(w.written[0].Value))
	assert.False(t, w.written[0].Time.IsZero())
	require.Len(t, w.written[0].Headers, 1)
	assert.Equal(t, "event_type", w.written[0].Headers[0].Key)

	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesSent.Load())
	assert.Equal(t, int64(len(msg.Value)), m.BytesSent.Load())
}

func TestPublish_Validation(t *testing.T) {
	t.Parallel()
	p := newTestProducer(&mockKafkaWriter{})

	tests := []struct {
		name string
		msg  *ProducerMessage
	}{
		{"no topic", newTestProducerMessage("", "k", "v")},
		{"no value", newTestProducerMessage("t", "k", "")},
		{"too large", newTestProducerMessage("t", "k", strings.Repeat("x", 1024*1024+1))},
	}
	for _, tc := range tests {
		err := p.Publish(context.Background(), tc.msg)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation), tc.name)
	}
}

func TestPublish_WriterFailure(t *testing.T) {
	t.Parallel()
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("leader not available")
	}}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessagingError))
	assert.Contains(t, err.Error(), "leader not available")
	snapshot := p.GetMetrics()
	assert.Equal(t, int64(1), snapshot.MessagesFailed.Load())
}

func TestProducerClose_Idempotent(t *testing.T) {
	t.Parallel()
	calls := 0
	w := &mockKafkaWriter{closeFunc: func() error { calls++; return nil }}
	p := newTestProducer(w)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, calls)

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

//Personal.AI order the ending
