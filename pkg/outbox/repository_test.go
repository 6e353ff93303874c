package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/dbtest"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderPlaced})
	require.EqualError(t, err, "transaction required")
}

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	aggregateID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   aggregateID,
			Data:          map[string]any{"order_id": aggregateID},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "aggregate_id = ?", aggregateID).Error)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &env))
	require.Equal(t, 1, env.Version)
	require.NotEmpty(t, env.EventID)
	require.JSONEq(t, `{"order_id":"`+aggregateID.String()+`"}`, string(env.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}))
		return errors.New("abort")
	})

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	first := models.OutboxEvent{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.NoError(t, repo.MarkPublishedTx(tx, first.ID))
		return repo.MarkFailedTx(tx, second.ID, errors.New("broker unavailable"))
	})
	require.NoError(t, err)

	var failed models.OutboxEvent
	require.NoError(t, db.First(&failed, "id = ?", second.ID).Error)
	require.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.NextAttemptAt)
	require.Equal(t, "broker unavailable", *failed.LastError)

	err = db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Empty(t, rows, "failed row is not due yet and published row is done")
		return nil
	})
	require.NoError(t, err)

	repo.now = func() time.Time { return now.Add(time.Minute) }
	err = db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		return repo.MarkTerminalTx(tx, second.ID, errors.New("gave up"), 3)
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Empty(t, rows)
		return nil
	})
	require.NoError(t, err)
}

func TestDeletePublishedBefore(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()
	rows := []models.OutboxEvent{
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &old},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &recent},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(-24*time.Hour), 100)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.EqualValues(t, 2, remaining)
}

func TestRetryDelayCaps(t *testing.T) {
	require.Equal(t, retryBaseDelay, retryDelay(1))
	require.Equal(t, 2*retryBaseDelay, retryDelay(2))
	require.Equal(t, retryMaxDelay, retryDelay(30))
}

func TestDLQInsertTruncatesAndChecksReason(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	eventID := uuid.New()
	long := strings.Repeat("x", maxDLQErrorLen+10)
	entry := models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   "gave_up",
		ErrorMessage:  &long,
	}

	err := db.Transaction(func(tx *gorm.DB) error { return repo.InsertTx(tx, entry) })
	require.ErrorContains(t, err, "unknown dlq error reason")

	entry.ErrorReason = enums.OutboxDLQReasonMaxAttempts
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error { return repo.InsertTx(tx, entry) }))

	stored, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, stored.ErrorReason)
	require.Len(t, *stored.ErrorMessage, maxDLQErrorLen)
}
