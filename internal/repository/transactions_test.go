package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/backend/internal/models"
)

var txColumns = []string{
	"id", "user_id", "title", "amount", "type", "category", "date", "notes", "created_at", "updated_at",
}

func newTransactionRepo(t *testing.T) (*PostgresTransactionRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresTransactionRepository(db), mock
}

func TestTransactionCreate(t *testing.T) {
	repo, mock := newTransactionRepo(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(int64(1), "Grocery shopping", sqlmock.AnyArg(), models.TypeExpense, "Food", "2025-04-15", "").
		WillReturnRows(sqlmock.NewRows(txColumns).
			AddRow(1, 1, "Grocery shopping", "-75.50", "expense", "Food", "2025-04-15", "", now, now))

	created, err := repo.Create(context.Background(), models.Transaction{
		UserID:   1,
		Title:    "Grocery shopping",
		Amount:   decimal.RequireFromString("-75.50"),
		Type:     models.TypeExpense,
		Category: "Food",
		Date:     "2025-04-15",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("-75.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionFind(t *testing.T) {
	t.Run("scopes lookup to the owning user", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)

		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(int64(1), int64(2)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Find(context.Background(), 1, 2)

		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("returns the matching record", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)

		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(int64(1), int64(1)).
			WillReturnRows(sqlmock.NewRows(txColumns).
				AddRow(1, 1, "Grocery shopping", "-75.50", "expense", "Food", "2025-04-15", "", now, now))

		tx, err := repo.Find(context.Background(), 1, 1)

		require.NoError(t, err)
		assert.Equal(t, "Grocery shopping", tx.Title)
		assert.Equal(t, models.TypeExpense, tx.Type)
	})
}

func TestTransactionDelete(t *testing.T) {
	t.Run("returns the record as it was before deletion", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)

		now := time.Now()
		mock.ExpectQuery("DELETE FROM transactions").
			WithArgs(int64(2), int64(1)).
			WillReturnRows(sqlmock.NewRows(txColumns).
				AddRow(2, 1, "Salary", "2000.00", "income", "Salary", "2025-04-01", "", now, now))

		deleted, err := repo.Delete(context.Background(), 2, 1)

		require.NoError(t, err)
		assert.Equal(t, "Salary", deleted.Title)
		assert.True(t, deleted.Amount.Equal(decimal.RequireFromString("2000.00")))
	})

	t.Run("unknown id maps to ErrTransactionNotFound", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)

		mock.ExpectQuery("DELETE FROM transactions").
			WithArgs(int64(9999), int64(1)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Delete(context.Background(), 9999, 1)

		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestTransactionListByUser(t *testing.T) {
	t.Run("returns rows in id order", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)

		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(txColumns).
				AddRow(1, 1, "Grocery shopping", "-75.50", "expense", "Food", "2025-04-15", "", now, now).
				AddRow(2, 1, "Salary", "2000.00", "income", "Salary", "2025-04-01", "", now, now))

		transactions, err := repo.ListByUser(context.Background(), 1)

		require.NoError(t, err)
		require.Len(t, transactions, 2)
		assert.Equal(t, int64(1), transactions[0].ID)
		assert.Equal(t, int64(2), transactions[1].ID)
	})

	t.Run("no rows yields an empty slice", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)

		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(txColumns))

		transactions, err := repo.ListByUser(context.Background(), 1)

		require.NoError(t, err)
		assert.NotNil(t, transactions)
		assert.Empty(t, transactions)
	})
}
