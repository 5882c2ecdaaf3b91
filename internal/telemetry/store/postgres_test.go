package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/serroba/sports-gateway/internal/telemetry"
	"github.com/serroba/sports-gateway/internal/telemetry/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_SaveRequest(t *testing.T) {
	event := &telemetry.RequestEvent{
		ID:             uuid.New(),
		RequestID:      "req-1",
		SubscriptionID: uuid.New(),
		UserID:         uuid.New(),
		Sport:          "football",
		Endpoint:       "list-fixtures",
		StatusCode:     200,
		CacheHit:       false,
		LatencyMs:      87,
		RecordedAt:     time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("inserts the event", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO request_logs").
			WithArgs(
				event.ID.String(),
				"req-1",
				event.SubscriptionID.String(),
				event.UserID.String(),
				"football",
				"list-fixtures",
				200,
				false,
				int64(87),
				event.RecordedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = store.NewPostgres(db).SaveRequest(context.Background(), event)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stores a missing request id as null", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		anonymous := *event
		anonymous.RequestID = ""

		mock.ExpectExec("INSERT INTO request_logs").
			WithArgs(
				anonymous.ID.String(),
				nil,
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = store.NewPostgres(db).SaveRequest(context.Background(), &anonymous)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns database errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO request_logs").WillReturnError(errors.New("relation does not exist"))

		err = store.NewPostgres(db).SaveRequest(context.Background(), event)

		assert.EqualError(t, err, "relation does not exist")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
