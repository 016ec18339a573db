// Package kafka wires the content event consumer and the Kafka connection
// settings shared with the producer.
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/events/modules/content"
	"github.com/certiva/website-backend/internal/cache"
	"github.com/certiva/website-backend/internal/config"
)

func secured(cfg config.KafkaConfig) bool {
	return cfg.APIKey != "" && cfg.APISecret != ""
}

// NewDialer returns a dialer using SASL/PLAIN over TLS when credentials are
// configured, and a plaintext dialer for local development otherwise.
func NewDialer(cfg config.KafkaConfig) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if secured(cfg) {
		dialer.SASLMechanism = plain.Mechanism{
			Username: cfg.APIKey,
			Password: cfg.APISecret,
		}
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return dialer
}

// NewTransport returns the writer transport matching NewDialer, or nil for
// the default transport.
func NewTransport(cfg config.KafkaConfig) kafka.RoundTripper {
	if !secured(cfg) {
		return nil
	}
	return &kafka.Transport{
		SASL: plain.Mechanism{
			Username: cfg.APIKey,
			Password: cfg.APISecret,
		},
		TLS: &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

// NewPublisher returns a Kafka publisher, or a no-op publisher when no
// brokers are configured.
func NewPublisher(cfg config.KafkaConfig, instanceID string) content.Publisher {
	if len(cfg.Brokers) == 0 {
		return content.NoopPublisher{}
	}
	return content.NewContentProducer(cfg.Brokers, cfg.Topic, instanceID, NewTransport(cfg))
}

// ConsumerGroup returns the consumer group of this instance. Every instance
// needs its own group to see every event, and the name must survive restarts
// so the broker does not accumulate abandoned groups. It uses the configured
// consumer id, falling back to host.
func ConsumerGroup(cfg config.KafkaConfig, host string) string {
	id := cfg.ConsumerID
	if id == "" {
		id = host
	}
	if id == "" {
		return cfg.GroupID
	}
	return cfg.GroupID + "-" + id
}

// RunEventProcessor consumes content events and invalidates the matching
// cache entries until ctx is cancelled.
func RunEventProcessor(ctx context.Context, cfg config.KafkaConfig, instanceID string, c cache.Cache, logger *zap.Logger) error {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	dialer := NewDialer(cfg)

	var err error
	for i := 1; i <= 3; i++ {
		logger.Info("Kafka connection attempt", zap.Int("attempt", i), zap.String("broker", cfg.Brokers[0]))
		var conn *kafka.Conn
		conn, err = dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err == nil {
			_ = conn.Close()
			break
		}
		if i < 3 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		return fmt.Errorf("connect to kafka: %w", err)
	}

	host, _ := os.Hostname()
	group := ConsumerGroup(cfg, host)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     group,
		Topic:       cfg.Topic,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
		Dialer:      dialer,
	})
	defer reader.Close()

	logger.Info("Kafka event processor started", zap.String("topic", cfg.Topic), zap.String("group", group))
	handle := func(ctx context.Context, msg kafka.Message) {
		invalidate := func(ctx context.Context, collection string) error {
			return cache.InvalidateCollection(ctx, c, collection)
		}
		if err := content.HandleContentChanged(ctx, msg.Value, instanceID, invalidate, logger); err != nil {
			logger.Warn("Content event not applied", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
	return readLoop(ctx, reader, newReadBackOff(), sleepContext, handle, logger)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

func newReadBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // keep retrying until ctx is cancelled
	return bo
}

// readLoop hands every message to handle. Read errors are retried with
// backoff, which resets after the next successful read.
func readLoop(ctx context.Context, r messageReader, bo backoff.BackOff, wait func(context.Context, time.Duration) error, handle func(context.Context, kafka.Message), logger *zap.Logger) error {
	bo.Reset()
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			next := bo.NextBackOff()
			logger.Warn("Kafka read failed", zap.Error(err), zap.Duration("retry_in", next))
			if err := wait(ctx, next); err != nil {
				return nil
			}
			continue
		}
		bo.Reset()
		handle(ctx, msg)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
