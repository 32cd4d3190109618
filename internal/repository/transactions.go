package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fintrack/backend/internal/models"
)

// TransactionRepository persists transactions. Every lookup is scoped by the
// owning user id; a record belonging to another user behaves as if it does
// not exist.
type TransactionRepository interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Find(ctx context.Context, id, userID int64) (models.Transaction, error)
	Update(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, id, userID int64) (models.Transaction, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error)
}

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `id, user_id, title, amount, type, category, date, notes, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Title, &tx.Amount, &tx.Type,
		&tx.Category, &tx.Date, &tx.Notes, &tx.CreatedAt, &tx.UpdatedAt,
	)
	return tx, err
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	created, err := scanTransaction(r.db.QueryRowContext(ctx, `
        INSERT INTO transactions (user_id, title, amount, type, category, date, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+transactionColumns+`
    `, tx.UserID, tx.Title, tx.Amount, tx.Type, tx.Category, tx.Date, tx.Notes))

	if err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return created, nil
}

func (r *PostgresTransactionRepository) Find(ctx context.Context, id, userID int64) (models.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, `
        SELECT `+transactionColumns+`
        FROM transactions
        WHERE id = $1 AND user_id = $2
    `, id, userID))

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Transaction{}, ErrTransactionNotFound
		}
		return models.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return tx, nil
}

func (r *PostgresTransactionRepository) Update(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	updated, err := scanTransaction(r.db.QueryRowContext(ctx, `
        UPDATE transactions
        SET title = $1, amount = $2, type = $3, category = $4, date = $5, notes = $6, updated_at = NOW()
        WHERE id = $7 AND user_id = $8
        RETURNING `+transactionColumns+`
    `, tx.Title, tx.Amount, tx.Type, tx.Category, tx.Date, tx.Notes, tx.ID, tx.UserID))

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Transaction{}, ErrTransactionNotFound
		}
		return models.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return updated, nil
}

// Delete removes the record and returns its pre-deletion state.
func (r *PostgresTransactionRepository) Delete(ctx context.Context, id, userID int64) (models.Transaction, error) {
	deleted, err := scanTransaction(r.db.QueryRowContext(ctx, `
        DELETE FROM transactions
        WHERE id = $1 AND user_id = $2
        RETURNING `+transactionColumns+`
    `, id, userID))

	if err != nil {
		if err == sql.ErrNoRows {
			return models.Transaction{}, ErrTransactionNotFound
		}
		return models.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	return deleted, nil
}

// ListByUser returns the user's transactions in insertion (id) order.
func (r *PostgresTransactionRepository) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+transactionColumns+`
        FROM transactions
        WHERE user_id = $1
        ORDER BY id ASC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return transactions, nil
}
