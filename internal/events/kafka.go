package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/jobs"
)

const DefaultTopic = "adreel.jobs"

// JobEvent is the message published when a job reaches a terminal phase.
type JobEvent struct {
	VideoID   string    `json:"video_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	VideoPath string    `json:"video_path,omitempty"`
	RemoteURL string    `json:"remote_url,omitempty"`
	URL       string    `json:"url"`
	Template  string    `json:"template"`
	At        time.Time `json:"at"`
}

func NewJobEvent(j jobs.Job) JobEvent {
	return JobEvent{
		VideoID:   j.ID,
		Status:    string(j.Phase),
		Message:   j.Message,
		VideoPath: j.VideoPath,
		RemoteURL: j.RemoteURL,
		URL:       j.URL,
		Template:  j.Template,
		At:        j.UpdatedAt,
	}
}

// KafkaNotifier publishes job events keyed by job id, so every event of
// one job lands on the same partition.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

// ProducerConfig is the sarama configuration used for job events.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	return cfg
}

func NewKafkaNotifier(brokers []string, topic string, log *zap.Logger) (*KafkaNotifier, error) {
	p, err := sarama.NewSyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(p, topic, log), nil
}

func NewKafkaNotifierWithProducer(p sarama.SyncProducer, topic string, log *zap.Logger) *KafkaNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaNotifier{producer: p, topic: topic, log: log}
}

func (k *KafkaNotifier) Notify(ctx context.Context, j jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(NewJobEvent(j))
	if err != nil {
		return err
	}
	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(j.ID),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", j.ID, err)
	}
	k.log.Debug("job event published",
		zap.String("job_id", j.ID),
		zap.String("status", string(j.Phase)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
