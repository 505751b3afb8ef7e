package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// Topic constants.
const (
	TopicReverseTransformRequested = "gibbs.reverse-transform.requested"
	TopicReverseTransformCompleted = "gibbs.reverse-transform.completed"
	TopicReverseTransformDLQ       = "gibbs.reverse-transform.dlq"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventReverseTransformRequested = "ReverseTransformRequested"
	EventReverseTransformCompleted = "ReverseTransformCompleted"
)

const eventSource = "gibbs"

// ─────────────────────────────────────────────────────────────────────────────
// Envelope
// ─────────────────────────────────────────────────────────────────────────────

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ReverseTransformRequestedPayload asks a worker to reverse-transform the
// measured reactions stored under ObjectKey and write the result to ResultKey.
type ReverseTransformRequestedPayload struct {
	BatchID   string `json:"batch_id"`
	ObjectKey string `json:"object_key"`
	ResultKey string `json:"result_key,omitempty"`
}

// ReverseTransformCompletedPayload reports a finished batch.
type ReverseTransformCompletedPayload struct {
	BatchID        string    `json:"batch_id"`
	Rows           int       `json:"rows"`
	Excluded       int       `json:"excluded"`
	CIDsToEstimate []string  `json:"cids_to_estimate"`
	ResultKey      string    `json:"result_key,omitempty"`
	ResultURL      string    `json:"result_url,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// NewEventEnvelope wraps payload in a fresh envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target. An empty payload is an error.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "empty event payload").WithDetail("event_id=" + e.EventID)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage renders the envelope as a record for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes a consumed record.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// EventPublisher
// ─────────────────────────────────────────────────────────────────────────────

// Publisher is the subset of Producer used by EventPublisher.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// EventPublisher emits reverse-transform events.
type EventPublisher struct {
	producer     Publisher
	topic        string
	requestTopic string
	logger       logging.Logger
}

// NewEventPublisher publishes completion events to topic, which defaults to
// TopicReverseTransformCompleted.
func NewEventPublisher(p Publisher, topic string, logger logging.Logger) *EventPublisher {
	if topic == "" {
		topic = TopicReverseTransformCompleted
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EventPublisher{
		producer:     p,
		topic:        topic,
		requestTopic: TopicReverseTransformRequested,
		logger:       logger,
	}
}

// WithRequestTopic overrides the topic RequestReverseTransform writes to.
func (p *EventPublisher) WithRequestTopic(topic string) *EventPublisher {
	if topic != "" {
		p.requestTopic = topic
	}
	return p
}

// PublishReverseTransformCompleted publishes payload keyed by its batch id.
func (p *EventPublisher) PublishReverseTransformCompleted(ctx context.Context, payload ReverseTransformCompletedPayload) error {
	return p.publish(ctx, p.topic, EventReverseTransformCompleted, payload.BatchID, payload)
}

// RequestReverseTransform publishes a batch request for the worker group.
func (p *EventPublisher) RequestReverseTransform(ctx context.Context, payload ReverseTransformRequestedPayload) error {
	return p.publish(ctx, p.requestTopic, EventReverseTransformRequested, payload.BatchID, payload)
}

func (p *EventPublisher) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, eventSource, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}
	p.logger.Info("event published",
		logging.String("event_type", eventType),
		logging.String("batch_id", key))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// TopicManager
// ─────────────────────────────────────────────────────────────────────────────

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates and inspects topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka").
			WithDetail("broker=" + brokers[0])
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// CreateTopic creates cfg. An existing topic is not an error.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "replication factor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries,
			kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries,
			kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create topic").WithDetail("topic=" + cfg.Name)
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name))
	return nil
}

// TopicExists reports whether name has at least one partition.
func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// ListTopics returns the distinct topic names known to the broker.
func (m *TopicManager) ListTopics(_ context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to read partitions")
	}
	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

// EnsureTopics creates each topic the broker does not list yet, stopping at
// the first failure. When listing fails every topic is attempted.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	existing := make(map[string]bool)
	if names, err := m.ListTopics(ctx); err != nil {
		m.logger.Warn("failed to list topics", logging.Err(err))
	} else {
		for _, name := range names {
			existing[name] = true
		}
	}
	for _, topic := range topics {
		if existing[topic.Name] {
			m.logger.Debug("topic exists", logging.String("topic", topic.Name))
			continue
		}
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDefaultTopics creates the reverse-transform topics.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	return m.EnsureTopics(ctx, DefaultTopics())
}

// Close closes the broker connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics lists the topics the engine reads and writes.
func DefaultTopics() []TopicConfig {
	const day = int64(24 * 3600 * 1000)
	return []TopicConfig{
		{Name: TopicReverseTransformRequested, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 7 * day},
		{Name: TopicReverseTransformCompleted, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 7 * day},
		{Name: TopicReverseTransformDLQ, NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 30 * day},
	}
}

//Personal.AI order the ending
