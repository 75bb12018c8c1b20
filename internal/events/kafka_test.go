package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/adreel/internal/jobs"
)

func finishedJob() jobs.Job {
	return jobs.Job{
		ID:        "4f1c",
		Phase:     jobs.PhaseCompleted,
		Progress:  100,
		Message:   "Video generated successfully",
		VideoPath: "storage/videos/video_4f1c.mp4",
		URL:       "https://shop.example/p/1",
		Template:  "modern_bold",
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifyPublishesEvent(t *testing.T) {
	p := mocks.NewSyncProducer(t, ProducerConfig())
	p.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		if m.Topic != DefaultTopic {
			return errors.New("wrong topic " + m.Topic)
		}
		key, _ := m.Key.Encode()
		if string(key) != "4f1c" {
			return errors.New("wrong key " + string(key))
		}
		return nil
	})
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev JobEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Status != "completed" || ev.VideoPath != "storage/videos/video_4f1c.mp4" {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})

	k := NewKafkaNotifierWithProducer(p, "", nil)
	require.NoError(t, k.Notify(context.Background(), finishedJob()))
	require.NoError(t, k.Notify(context.Background(), finishedJob()))
	require.NoError(t, k.Close())
}

func TestNotifyReportsFailure(t *testing.T) {
	p := mocks.NewSyncProducer(t, ProducerConfig())
	p.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := NewKafkaNotifierWithProducer(p, "custom.topic", nil)
	err := k.Notify(context.Background(), finishedJob())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, k.Close())
}

func TestNotifyHonoursCancelledContext(t *testing.T) {
	p := mocks.NewSyncProducer(t, ProducerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	k := NewKafkaNotifierWithProducer(p, "", nil)
	assert.ErrorIs(t, k.Notify(ctx, finishedJob()), context.Canceled)
	require.NoError(t, k.Close())
}

func TestNewJobEvent(t *testing.T) {
	ev := NewJobEvent(finishedJob())
	assert.Equal(t, "4f1c", ev.VideoID)
	assert.Equal(t, "completed", ev.Status)
	assert.Equal(t, "modern_bold", ev.Template)
	assert.True(t, ev.At.Equal(finishedJob().UpdatedAt))
}
