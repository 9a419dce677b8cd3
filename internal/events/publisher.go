// Package events publishes caption and translation events to Kafka for
// downstream consumers (caption overlays, analytics, archival).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-speech-translation-relay/internal/observability/metrics"
)

// Publisher publishes session events to separate Kafka topics: live
// captions (high volume, transient) and completed translations.
type Publisher struct {
	writerCaption     *kafka.Writer
	writerTranslation *kafka.Writer
	principal         string
	topicCaption      string
	topicTranslation  string
	enabled           bool
	metrics           *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers          []string
	TopicCaption     string
	TopicTranslation string
	Principal        string
	Enabled          bool
}

// New creates a Kafka event publisher. With Kafka disabled or no brokers
// configured it degrades to log-only mode: publishes succeed but only hit
// the log, which keeps single-process deployments dependency-free.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:        cfg.Principal,
			topicCaption:     cfg.TopicCaption,
			topicTranslation: cfg.TopicTranslation,
			enabled:          false,
			metrics:          m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerCaption := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicCaption,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerTranslation := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTranslation,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCaption", cfg.TopicCaption).
		Str("topicTranslation", cfg.TopicTranslation).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCaption:     writerCaption,
		writerTranslation: writerTranslation,
		principal:         cfg.Principal,
		topicCaption:      cfg.TopicCaption,
		topicTranslation:  cfg.TopicTranslation,
		enabled:           true,
		metrics:           m,
	}
}

// PublishCaption publishes a live caption event, keyed by session.
func (p *Publisher) PublishCaption(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerCaption, p.topicCaption, "caption", key, event)
}

// PublishTranslation publishes a completed translation event, keyed by session.
func (p *Publisher) PublishTranslation(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTranslation, p.topicTranslation, "translation", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCaption != nil {
		if e := p.writerCaption.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing caption writer")
			err = e
		}
	}
	if p.writerTranslation != nil {
		if e := p.writerTranslation.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing translation writer")
			err = e
		}
	}
	return err
}
