package database_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolmed/schoolmed-backend/pkg/database"
	"github.com/schoolmed/schoolmed-backend/pkg/logger"
	"github.com/schoolmed/schoolmed-backend/pkg/testutil"
)

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := database.Wrap(mockDB.DB, logger.Nop())

	mockDB.Mock.ExpectBegin()
	mockDB.ExpectExec("UPDATE lots SET quantity = $1").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectCommit()

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, "UPDATE lots SET quantity = $1", 5)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := database.Wrap(mockDB.DB, logger.Nop())

	mockDB.Mock.ExpectBegin()
	mockDB.Mock.ExpectRollback()

	wantErr := fmt.Errorf("boom")
	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}

func TestWithTx_NestedCallJoinsTheOuterTransaction(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := database.Wrap(mockDB.DB, logger.Nop())

	// A single begin and commit: the inner call must not open its own
	// transaction, and an inner failure must roll the outer work back too.
	mockDB.Mock.ExpectBegin()
	mockDB.ExpectExec("UPDATE lots SET quantity = quantity - $1").
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("INSERT INTO medication_administrations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectCommit()

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		if err := db.WithTx(ctx, func(ctx context.Context) error {
			_, err := db.ExecContext(ctx, "UPDATE lots SET quantity = quantity - $1", 2)
			return err
		}); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx, "INSERT INTO medication_administrations")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}

func TestWithTx_InnerErrorRollsBackOuterWork(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := database.Wrap(mockDB.DB, logger.Nop())

	mockDB.Mock.ExpectBegin()
	mockDB.ExpectExec("UPDATE lots SET quantity = quantity - $1").
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectRollback()

	wantErr := fmt.Errorf("insert failed")
	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		if err := db.WithTx(ctx, func(ctx context.Context) error {
			_, err := db.ExecContext(ctx, "UPDATE lots SET quantity = quantity - $1", 2)
			return err
		}); err != nil {
			return err
		}
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}
