package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/kafka"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/outbox/payloads"
)

const mirrorConsumerName = "ledger-mirror"

type mirrorer interface {
	Mirror(ctx context.Context, txID uuid.UUID) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer feeds ledger_transaction_committed events to the mirror. Token
// ledger failures are logged and acknowledged, leaving the drift to
// reconciliation; store and idempotency failures are redelivered.
type Consumer struct {
	mirror      mirrorer
	idempotency idempotencyChecker
	logg        *logger.Logger
}

func NewConsumer(mirror mirrorer, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if mirror == nil {
		return nil, fmt.Errorf("mirror service required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{mirror: mirror, idempotency: manager, logg: logg}, nil
}

// RunPubSub receives from a pub/sub subscription until ctx ends.
func (c *Consumer) RunPubSub(ctx context.Context, subscription *pubsub.Subscriber) error {
	if subscription == nil {
		return errors.New("ledger subscription required")
	}
	return subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		msgCtx := c.logg.WithField(ctx, "message_id", msg.ID)
		if c.process(msgCtx, msg.Attributes["event_type"], msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// KafkaHandler adapts the consumer to the kafka consumer loop, where an
// error leaves the offset uncommitted.
func (c *Consumer) KafkaHandler() kafka.Handler {
	return func(ctx context.Context, m kafkago.Message) error {
		if c.process(ctx, kafka.Headers(m)["event_type"], m.Value).nack {
			return errors.New("mirror event not processed")
		}
		return nil
	}
}

type processResult struct {
	nack bool
}

func (c *Consumer) process(ctx context.Context, eventType string, data []byte) processResult {
	logCtx := c.logg.WithField(ctx, "event_type", eventType)
	if eventType != string(enums.EventLedgerTransactionCommitted) {
		c.logg.Debug(logCtx, "skipping non-ledger event")
		return processResult{}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{}
	}
	logCtx = c.logg.WithEvent(logCtx, envelope.EventID, eventType)

	var payload payloads.LedgerTransactionCommitted
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.TransactionID == uuid.Nil {
		c.logg.Error(logCtx, "failed to parse ledger payload", err)
		return processResult{}
	}
	logCtx = c.logg.WithField(logCtx, "transaction_id", payload.TransactionID.String())

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, mirrorConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := c.mirror.Mirror(ctx, payload.TransactionID); err != nil {
		if errors.Is(err, ErrStoreAfterChain) {
			c.logg.Error(logCtx, "mirror store failure after chain operation, left to reconciliation", err)
			return processResult{}
		}
		if errors.Is(err, ErrStore) {
			c.logg.Error(logCtx, "mirror store failure, redelivering", err)
			_ = c.idempotency.Delete(ctx, mirrorConsumerName, eventID)
			return processResult{nack: true}
		}
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "mirror failed, left to reconciliation")
		return processResult{}
	}
	c.logg.Info(logCtx, "ledger transaction mirrored")
	return processResult{}
}
