package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are serialized as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType indicates whether a transaction is income or an expense
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Transaction represents a single dated financial entry owned by a user.
// Amount follows the sign convention income positive / expense negative;
// the type field is recorded separately and is not cross-validated against
// the sign.
type Transaction struct {
	ID        int64           `json:"id" example:"1"`
	UserID    int64           `json:"-"`
	Title     string          `json:"title" example:"Grocery Shopping"`
	Amount    decimal.Decimal `json:"amount" example:"-75.50"`
	Type      TransactionType `json:"type" example:"expense"`
	Category  string          `json:"category" example:"Food"`
	Date      string          `json:"date" example:"2025-04-15"` // YYYY-MM-DD
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}
