package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/config"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

type TransactionService struct {
	repo      repository.TransactionRepository
	redis     *redis.Client
	validator *ValidationHelper
	cache     *config.SummaryCacheConfig
}

// CreateTransactionRequest represents the transaction creation payload
// @Description Transaction creation request structure
type CreateTransactionRequest struct {
	Title    string           `json:"title" validate:"required" example:"Grocery shopping"`          // Transaction title
	Amount   *decimal.Decimal `json:"amount" validate:"required" example:"-75.50"`                   // Signed amount
	Type     string           `json:"type" validate:"required,oneof=income expense" example:"expense"` // income or expense
	Category string           `json:"category" validate:"required" example:"Food"`                   // Category label
	Date     string           `json:"date" validate:"required,datetime=2006-01-02" example:"2025-04-15"` // Transaction date
	Notes    string           `json:"notes" example:"Weekly groceries"`                              // Optional notes
}

// UpdateTransactionRequest represents the partial-update payload. Absent
// fields leave the stored value untouched.
// @Description Transaction update request structure
type UpdateTransactionRequest struct {
	Title    *string          `json:"title"`
	Amount   *decimal.Decimal `json:"amount"`
	Type     *string          `json:"type" validate:"omitempty,oneof=income expense"`
	Category *string          `json:"category"`
	Date     *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes    *string          `json:"notes"`
}

func NewTransactionService(repo repository.TransactionRepository, redisClient *redis.Client, cacheConfig *config.SummaryCacheConfig) *TransactionService {
	return &TransactionService{
		repo:      repo,
		redis:     redisClient,
		validator: NewValidationHelper(),
		cache:     cacheConfig,
	}
}

// ListTransactions returns the authenticated user's transactions
// @Summary List transactions
// @Description List the authenticated user's transactions, optionally filtered
// @Tags transactions
// @Produce json
// @Param start_date query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Param category query string false "Exact category match"
// @Param type query string false "Transaction type (income or expense)"
// @Success 200 {array} models.Transaction "Transactions"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /transactions [get]
func (s *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := s.repo.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to list transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	filter := filterFromQuery(r)
	sendJSON(w, http.StatusOK, FilterTransactions(transactions, filter))
}

// CreateTransaction records a new transaction for the authenticated user
// @Summary Create transaction
// @Description Create a new transaction for the authenticated user
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body CreateTransactionRequest true "Transaction to create"
// @Success 200 {object} map[string]any "Created transaction"
// @Failure 400 {object} map[string]any "Missing required fields"
// @Security BearerAuth
// @Router /transactions [post]
func (s *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateTransactionRequest
	if !s.decodeRequest(w, r, &req, true) {
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[TRANSACTION] Create validation failed for user %d: %v", userID, err)
		sendFailure(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	tx := models.Transaction{
		UserID:   userID,
		Title:    req.Title,
		Amount:   *req.Amount,
		Type:     models.TransactionType(req.Type),
		Category: req.Category,
		Date:     req.Date,
		Notes:    req.Notes,
	}

	created, err := s.repo.Create(r.Context(), tx)
	if err != nil {
		log.Printf("[TRANSACTION] Create failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TRANSACTION] Created transaction %d for user %d", created.ID, userID)
	s.bumpSummaryVersion(r, userID)
	sendTransaction(w, http.StatusOK, created)
}

// UpdateTransaction modifies an existing transaction
// @Summary Update transaction
// @Description Update fields of an existing transaction; absent fields are preserved
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param request body UpdateTransactionRequest true "Fields to update"
// @Success 200 {object} map[string]any "Updated transaction"
// @Failure 404 {object} map[string]any "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{id} [put]
func (s *TransactionService) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendFailure(w, http.StatusNotFound, "Transaction not found")
		return
	}

	existing, err := s.repo.Find(r.Context(), id, userID)
	if err != nil {
		if err == repository.ErrTransactionNotFound {
			sendFailure(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("[TRANSACTION] Lookup failed for transaction %d: %v", id, err)
		SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		return
	}

	var req UpdateTransactionRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[TRANSACTION] Update validation failed for transaction %d: %v", id, err)
		sendFailure(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.Amount != nil {
		existing.Amount = *req.Amount
	}
	if req.Type != nil {
		existing.Type = models.TransactionType(*req.Type)
	}
	if req.Category != nil {
		existing.Category = *req.Category
	}
	if req.Date != nil {
		existing.Date = *req.Date
	}
	if req.Notes != nil {
		existing.Notes = *req.Notes
	}

	updated, err := s.repo.Update(r.Context(), existing)
	if err != nil {
		if err == repository.ErrTransactionNotFound {
			sendFailure(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("[TRANSACTION] Update failed for transaction %d: %v", id, err)
		SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TRANSACTION] Updated transaction %d for user %d", id, userID)
	s.bumpSummaryVersion(r, userID)
	sendTransaction(w, http.StatusOK, updated)
}

// DeleteTransaction removes a transaction
// @Summary Delete transaction
// @Description Delete a transaction and return its last stored state
// @Tags transactions
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} map[string]any "Deleted transaction"
// @Failure 404 {object} map[string]any "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{id} [delete]
func (s *TransactionService) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendFailure(w, http.StatusNotFound, "Transaction not found")
		return
	}

	deleted, err := s.repo.Delete(r.Context(), id, userID)
	if err != nil {
		if err == repository.ErrTransactionNotFound {
			sendFailure(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("[TRANSACTION] Delete failed for transaction %d: %v", id, err)
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TRANSACTION] Deleted transaction %d for user %d", id, userID)
	s.bumpSummaryVersion(r, userID)
	sendTransaction(w, http.StatusOK, deleted)
}

// GetSummary returns aggregate totals for the authenticated user
// @Summary Financial summary
// @Description Aggregate income, expenses, balance and per-category breakdowns
// @Tags summary
// @Produce json
// @Param start_date query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Param category query string false "Exact category match"
// @Param type query string false "Transaction type (income or expense)"
// @Success 200 {object} Summary "Summary"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /summary [get]
func (s *TransactionService) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	filter := filterFromQuery(r)

	cacheKey := s.summaryCacheKey(r, userID, filter)
	if cacheKey != "" {
		if cached, err := s.redis.Get(r.Context(), cacheKey).Result(); err == nil {
			log.Printf("[SUMMARY] Cache hit for user %d", userID)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(cached))
			return
		}
	}

	transactions, err := s.repo.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[SUMMARY] Failed to list transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	summary := Summarize(FilterTransactions(transactions, filter))

	if cacheKey != "" {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.redis.Set(r.Context(), cacheKey, payload, s.cache.TTL).Err(); err != nil {
				log.Printf("[SUMMARY] Failed to cache summary for user %d: %v", userID, err)
			}
		}
	}

	sendJSON(w, http.StatusOK, summary)
}

// summaryCacheKey builds a version-scoped cache key. Write paths bump the
// version counter instead of hunting down every cached filter combination.
func (s *TransactionService) summaryCacheKey(r *http.Request, userID int64, filter TransactionFilter) string {
	if s.redis == nil {
		return ""
	}

	verKey := fmt.Sprintf("%s:ver:%d", s.cache.KeyPrefix, userID)
	ver, err := s.redis.Get(r.Context(), verKey).Result()
	if err != nil {
		if err != redis.Nil {
			return ""
		}
		ver = "0"
	}

	return fmt.Sprintf("%s:%d:%s:%s", s.cache.KeyPrefix, userID, ver, filter.cacheKey())
}

func (s *TransactionService) bumpSummaryVersion(r *http.Request, userID int64) {
	if s.redis == nil {
		return
	}

	verKey := fmt.Sprintf("%s:ver:%d", s.cache.KeyPrefix, userID)
	if err := s.redis.Incr(r.Context(), verKey).Err(); err != nil {
		log.Printf("[SUMMARY] Failed to bump cache version for user %d: %v", userID, err)
	}
}

// decodeRequest applies the shared request body limits and decoding rules
// before any payload is trusted. Patch bodies tolerate unknown keys, so
// strict field checking is opt-in.
func (s *TransactionService) decodeRequest(w http.ResponseWriter, r *http.Request, dst any, strict bool) bool {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		log.Printf("[TRANSACTION] Invalid request body: %v", err)
		sendFailure(w, http.StatusBadRequest, "Missing required fields")
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[TRANSACTION] Multiple JSON objects detected")
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	return true
}

func filterFromQuery(r *http.Request) TransactionFilter {
	q := r.URL.Query()
	return TransactionFilter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Category:  q.Get("category"),
		Type:      q.Get("type"),
	}
}
