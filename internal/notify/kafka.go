package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"fieldproof/internal/platform/config"
)

// Kafka publishes notifications to a topic. Produce is asynchronous; the
// delivery callback only logs, so a broker outage cannot stall a transition.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafka(cfg config.KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, err
	}
	return &Kafka{client: client, topic: cfg.Topic, logger: logger}, nil
}

func (k *Kafka) Notify(ctx context.Context, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		k.logger.ErrorContext(ctx, "marshal notification failed", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(n.DocumentID.String()),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("notification publish failed",
				"document_id", n.DocumentID.String(),
				"error", err,
			)
		}
	})
}

// Close flushes pending records and shuts down the client.
func (k *Kafka) Close() {
	k.client.Close()
}
