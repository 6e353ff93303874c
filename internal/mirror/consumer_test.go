package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/outbox/payloads"
)

type fakeMirror struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeMirror) Mirror(_ context.Context, txID uuid.UUID) error {
	f.calls = append(f.calls, txID)
	return f.err
}

type fakeIdempotency struct {
	seen     map[uuid.UUID]bool
	checkErr error
	deleted  []uuid.UUID
}

func (f *fakeIdempotency) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if f.seen == nil {
		f.seen = map[uuid.UUID]bool{}
	}
	already := f.seen[eventID]
	f.seen[eventID] = true
	return already, nil
}

func (f *fakeIdempotency) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	f.deleted = append(f.deleted, eventID)
	delete(f.seen, eventID)
	return nil
}

func ledgerEnvelope(t *testing.T, txID uuid.UUID) []byte {
	t.Helper()
	data, err := json.Marshal(payloads.LedgerTransactionCommitted{
		TransactionID: txID,
		Kind:          enums.LedgerKindPayment,
		CreditDelta:   10,
	})
	require.NoError(t, err)
	raw, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: data})
	require.NoError(t, err)
	return raw
}

func newTestConsumer(t *testing.T, mirror *fakeMirror, idem *fakeIdempotency) *Consumer {
	t.Helper()
	c, err := NewConsumer(mirror, idem, logger.New(logger.Options{ServiceName: "mirror-test", Output: io.Discard}))
	require.NoError(t, err)
	return c
}

func TestConsumerMirrorsOncePerEvent(t *testing.T) {
	mirror := &fakeMirror{}
	c := newTestConsumer(t, mirror, &fakeIdempotency{})
	txID := uuid.New()
	raw := ledgerEnvelope(t, txID)

	event := string(enums.EventLedgerTransactionCommitted)
	require.False(t, c.process(context.Background(), event, raw).nack)
	require.False(t, c.process(context.Background(), event, raw).nack)
	require.Equal(t, []uuid.UUID{txID}, mirror.calls)
}

func TestConsumerAcksChainFailures(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("execution reverted")}
	idem := &fakeIdempotency{}
	c := newTestConsumer(t, mirror, idem)

	result := c.process(context.Background(), string(enums.EventLedgerTransactionCommitted), ledgerEnvelope(t, uuid.New()))
	require.False(t, result.nack)
	require.Empty(t, idem.deleted)
}

func TestConsumerRedeliversStoreFailures(t *testing.T) {
	mirror := &fakeMirror{err: fmt.Errorf("%w: load transaction: %w", ErrStore, errors.New("conn reset"))}
	idem := &fakeIdempotency{}
	c := newTestConsumer(t, mirror, idem)

	result := c.process(context.Background(), string(enums.EventLedgerTransactionCommitted), ledgerEnvelope(t, uuid.New()))
	require.True(t, result.nack)
	require.Len(t, idem.deleted, 1)

	idem.checkErr = errors.New("redis down")
	mirror.err = nil
	result = c.process(context.Background(), string(enums.EventLedgerTransactionCommitted), ledgerEnvelope(t, uuid.New()))
	require.True(t, result.nack)
	require.Len(t, mirror.calls, 1)
}

func TestConsumerSkipsOtherAndMalformedEvents(t *testing.T) {
	mirror := &fakeMirror{}
	c := newTestConsumer(t, mirror, &fakeIdempotency{})

	require.False(t, c.process(context.Background(), string(enums.EventOrderPlaced), ledgerEnvelope(t, uuid.New())).nack)
	require.False(t, c.process(context.Background(), string(enums.EventLedgerTransactionCommitted), []byte("{")).nack)
	require.Empty(t, mirror.calls)
}

func TestKafkaHandlerReturnsErrorOnNack(t *testing.T) {
	mirror := &fakeMirror{}
	idem := &fakeIdempotency{checkErr: errors.New("redis down")}
	handler := newTestConsumer(t, mirror, idem).KafkaHandler()

	msg := kafkago.Message{
		Value:   ledgerEnvelope(t, uuid.New()),
		Headers: []kafkago.Header{{Key: "event_type", Value: []byte(enums.EventLedgerTransactionCommitted)}},
	}
	require.Error(t, handler(context.Background(), msg))

	idem.checkErr = nil
	require.NoError(t, handler(context.Background(), msg))
	require.Len(t, mirror.calls, 1)
}

func TestConsumerAcksStoreFailuresAfterChain(t *testing.T) {
	mirror := &fakeMirror{err: fmt.Errorf("%w: attach credit hash: %w", ErrStoreAfterChain, errors.New("db timeout"))}
	idem := &fakeIdempotency{}
	c := newTestConsumer(t, mirror, idem)

	raw := ledgerEnvelope(t, uuid.New())
	event := string(enums.EventLedgerTransactionCommitted)
	require.False(t, c.process(context.Background(), event, raw).nack)
	require.Empty(t, idem.deleted)

	require.False(t, c.process(context.Background(), event, raw).nack)
	require.Len(t, mirror.calls, 1)
}
