package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/models"
)

// TransactionFilter holds optional filter criteria for transaction queries.
// An empty string means the criterion is not applied; provided criteria
// compose with logical AND.
type TransactionFilter struct {
	StartDate string // inclusive, YYYY-MM-DD
	EndDate   string // inclusive, YYYY-MM-DD
	Category  string // exact, case-sensitive
	Type      string // "income" or "expense"
}

func (f TransactionFilter) isZero() bool {
	return f.StartDate == "" && f.EndDate == "" && f.Category == "" && f.Type == ""
}

// cacheKey returns a stable key fragment for this filter combination.
func (f TransactionFilter) cacheKey() string {
	return strings.Join([]string{f.StartDate, f.EndDate, f.Category, f.Type}, "|")
}

func (f TransactionFilter) matches(tx models.Transaction) bool {
	// YYYY-MM-DD strings order the same way the calendar does.
	if f.StartDate != "" && tx.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && tx.Date > f.EndDate {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Type != "" && string(tx.Type) != f.Type {
		return false
	}
	return true
}

// FilterTransactions returns the transactions satisfying every provided
// criterion, preserving input order. It is a pure function over its inputs.
func FilterTransactions(transactions []models.Transaction, f TransactionFilter) []models.Transaction {
	if f.isZero() {
		return transactions
	}
	out := []models.Transaction{}
	for _, tx := range transactions {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// CategoryTotal is one breakdown entry: the total magnitude recorded against
// a category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Summary holds aggregate totals and per-category breakdowns over a
// transaction set. TotalExpenses is a non-negative magnitude, so
// Balance = TotalIncome - TotalExpenses always holds exactly.
type Summary struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	Balance          decimal.Decimal `json:"balance"`
	ExpenseBreakdown []CategoryTotal `json:"expense_breakdown"`
	IncomeBreakdown  []CategoryTotal `json:"income_breakdown"`
}

// Summarize computes the financial summary of a transaction set. Records are
// grouped by the type field; expense amounts contribute their absolute value.
// An empty set yields zero totals and empty breakdowns.
func Summarize(transactions []models.Transaction) Summary {
	income := decimal.Zero
	expenses := decimal.Zero
	incomeByCategory := map[string]decimal.Decimal{}
	expenseByCategory := map[string]decimal.Decimal{}

	for _, tx := range transactions {
		switch tx.Type {
		case models.TypeIncome:
			income = income.Add(tx.Amount)
			incomeByCategory[tx.Category] = incomeByCategory[tx.Category].Add(tx.Amount)
		case models.TypeExpense:
			magnitude := tx.Amount.Abs()
			expenses = expenses.Add(magnitude)
			expenseByCategory[tx.Category] = expenseByCategory[tx.Category].Add(magnitude)
		}
	}

	return Summary{
		TotalIncome:      income,
		TotalExpenses:    expenses,
		Balance:          income.Sub(expenses),
		ExpenseBreakdown: breakdown(expenseByCategory),
		IncomeBreakdown:  breakdown(incomeByCategory),
	}
}

// breakdown flattens a category sum map into entries sorted by category name
// so the serialized summary is deterministic.
func breakdown(byCategory map[string]decimal.Decimal) []CategoryTotal {
	entries := make([]CategoryTotal, 0, len(byCategory))
	for category, total := range byCategory {
		entries = append(entries, CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Category < entries[j].Category })
	return entries
}
