package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

// Handler processes one message. Returning nil commits the offset; an error
// leaves it uncommitted and pauses the loop before the next fetch.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer drives a reader through a handler until the context ends.
type Consumer struct {
	reader  messageReader
	logg    *logger.Logger
	backoff time.Duration
}

func NewConsumer(reader *kafka.Reader, logg *logger.Logger) (*Consumer, error) {
	if reader == nil {
		return nil, errors.New("kafka reader is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{reader: reader, logg: logg, backoff: 500 * time.Millisecond}, nil
}

func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msgCtx := c.logg.WithFields(ctx, map[string]any{
			"topic":     m.Topic,
			"partition": m.Partition,
			"offset":    m.Offset,
		})
		if err := h(msgCtx, m); err != nil {
			c.logg.Error(msgCtx, "kafka handler failed", err)
			if sleepErr := sleep(ctx, c.backoff); sleepErr != nil {
				return nil
			}
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logg.Error(msgCtx, "kafka commit failed", err)
		}
	}
}

// Headers flattens message headers into a map.
func Headers(m kafka.Message) map[string]string {
	out := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
