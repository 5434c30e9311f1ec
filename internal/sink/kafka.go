package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Message types carried in the "type" header.
const (
	TypeAnalysis = "analysis_result"
	TypeMetric   = "performance_metric"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the results topic writer.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Publisher writes analysis results and metric snapshots to a Kafka topic.
type Publisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewPublisher creates a Publisher backed by a kafka-go Writer.
func NewPublisher(cfg KafkaConfig, logger *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger *zap.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger}
}

// StoreAnalysis publishes r keyed by organization and model.
func (p *Publisher) StoreAnalysis(ctx context.Context, r *model.AnalysisResult) error {
	return p.publish(ctx, TypeAnalysis, r.OrganizationID+"/"+r.ModelID, r)
}

// StorePerformanceMetric publishes m keyed by metric type.
func (p *Publisher) StorePerformanceMetric(ctx context.Context, m model.PerformanceMetric) error {
	return p.publish(ctx, TypeMetric, m.MetricType, m)
}

func (p *Publisher) publish(ctx context.Context, kind, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(kind)}},
		Time:    time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka publish failed", zap.String("type", kind), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
