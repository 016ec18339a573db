package content

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Publisher announces content changes.
type Publisher interface {
	PublishContentChanged(ctx context.Context, collection, key, action string) error
	Close() error
}

// ContentProducer sends content change events to Kafka
type ContentProducer struct {
	Writer *kafka.Writer
	Source string
}

// NewContentProducer initializes a new Kafka writer for content events.
// transport may be nil for the default plaintext transport.
func NewContentProducer(brokers []string, topic, source string, transport kafka.RoundTripper) *ContentProducer {
	return &ContentProducer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			Transport:              transport,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		Source: source,
	}
}

// NewEvent builds a content.changed event.
func NewEvent(source, collection, key, action string) ContentChangedEvent {
	return ContentChangedEvent{
		EventType:     EventTypeContentChanged,
		EventID:       uuid.New().String(),
		EventTime:     time.Now().UTC(),
		SchemaVersion: "v1",
		Source:        source,
		Collection:    collection,
		Key:           key,
		Action:        action,
	}
}

// PublishContentChanged sends the event to the Kafka topic
func (p *ContentProducer) PublishContentChanged(ctx context.Context, collection, key, action string) error {
	payload, err := json.Marshal(NewEvent(p.Source, collection, key, action))
	if err != nil {
		return err
	}

	// keyed by collection so events of one collection stay ordered
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(collection),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *ContentProducer) Close() error {
	return p.Writer.Close()
}

// NoopPublisher drops every event. It is used when Kafka is not configured.
type NoopPublisher struct{}

// PublishContentChanged does nothing.
func (NoopPublisher) PublishContentChanged(context.Context, string, string, string) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
