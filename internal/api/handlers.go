package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/database"
	"github.com/scripfolio/scripfolio/internal/engine"
	"github.com/scripfolio/scripfolio/internal/kafka"
	"github.com/scripfolio/scripfolio/internal/models"
	"github.com/scripfolio/scripfolio/internal/redis"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *database.DB
	engine   *engine.Engine
	producer *kafka.Producer
	redis    *redis.Client
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, eng *engine.Engine, producer *kafka.Producer, redisClient *redis.Client) *Handler {
	return &Handler{
		db:       db,
		engine:   eng,
		producer: producer,
		redis:    redisClient,
	}
}

// ListAccounts handles GET /accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.db.ListAccounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	account := &models.Account{Name: req.Name, Description: req.Description}
	if err := h.db.CreateAccount(r.Context(), account); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

// DeleteAccount handles DELETE /accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteAccount(r.Context(), accountID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.invalidateAccount(r.Context(), accountID)
	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions handles GET /accounts/{id}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	transactions, err := h.db.ListTransactions(r.Context(), accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, transactions)
}

// transactionRequest is the entry-form payload for a new transaction
type transactionRequest struct {
	Scrip          string `json:"scrip"`
	Category       string `json:"category"`
	Side           string `json:"side"`
	Date           string `json:"date"`
	Quantity       string `json:"quantity"`
	Price          string `json:"price"`
	Exchange       string `json:"exchange"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	InstrumentKind string `json:"instrument_kind,omitempty"`
	StrikePrice    string `json:"strike_price,omitempty"`
	OldScrip       string `json:"old_scrip,omitempty"`
}

// CreateTransaction handles POST /accounts/{id}/transactions. This is
// the entry boundary: shape validation happens here, and the stored
// amount is fixed at the charge-adjusted notional in effect right now.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tx, errMsg := req.validate(accountID)
	if errMsg != "" {
		http.Error(w, errMsg, http.StatusBadRequest)
		return
	}

	notional := tx.Price.Mul(tx.Quantity)
	_, total, err := h.engine.CalculateCharges(r.Context(), notional, tx.Side, tx.Exchange, tx.Category, tx.InstrumentKind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tx.Side.IsDisposal() {
		tx.StoredAmount = notional.Sub(total)
	} else {
		tx.StoredAmount = notional.Add(total)
	}

	if err := h.db.CreateTransaction(r.Context(), tx); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.invalidateAccount(r.Context(), accountID)

	if h.producer != nil {
		if err := h.producer.PublishTransactionRecorded(r.Context(), tx); err != nil {
			log.Printf("Warning: failed to publish transaction event: %v", err)
		}
	}

	respondJSON(w, http.StatusCreated, tx)
}

func (req *transactionRequest) validate(accountID int) (*models.Transaction, string) {
	if req.Scrip == "" {
		return nil, "scrip is required"
	}
	side := models.Side(req.Side)
	if !side.Valid() {
		return nil, "unknown side"
	}
	category := models.Category(req.Category)
	if !category.Valid() {
		return nil, "unknown category"
	}
	exchange := models.Exchange(req.Exchange)
	if !exchange.Valid() {
		return nil, "unknown exchange"
	}
	if side == models.SideMergerAcquisition && req.OldScrip == "" {
		return nil, "old_scrip is required for mergers"
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, "invalid date, want YYYY-MM-DD"
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil || !quantity.IsPositive() {
		return nil, "quantity must be a positive number"
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, "price must be a non-negative number"
	}

	tx := &models.Transaction{
		AccountID:      accountID,
		Scrip:          req.Scrip,
		Category:       category,
		Side:           side,
		Date:           date,
		Quantity:       quantity,
		Price:          price,
		Exchange:       exchange,
		InstrumentKind: models.InstrumentKind(req.InstrumentKind),
		OldScrip:       req.OldScrip,
	}

	if req.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return nil, "invalid expiry_date, want YYYY-MM-DD"
		}
		tx.ExpiryDate = &expiry
	}
	if req.StrikePrice != "" {
		if tx.StrikePrice, err = decimal.NewFromString(req.StrikePrice); err != nil {
			return nil, "strike_price must be a number"
		}
	}
	return tx, ""
}

// DeleteTransaction handles DELETE /transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tx, err := h.db.GetTransaction(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := h.db.DeleteTransaction(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.invalidateAccount(r.Context(), tx.AccountID)
	w.WriteHeader(http.StatusNoContent)
}

// GetPortfolio handles GET /accounts/{id}/portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if h.redis != nil {
		var cached []models.PortfolioItem
		if err := h.redis.GetPortfolio(r.Context(), accountID, &cached); err == nil {
			reportComputations.WithLabelValues("portfolio", "cache").Inc()
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	start := time.Now()
	items, err := h.engine.ComputePositions(r.Context(), accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	replayDuration.Observe(time.Since(start).Seconds())
	reportComputations.WithLabelValues("portfolio", "computed").Inc()

	if h.redis != nil {
		if err := h.redis.SetPortfolio(r.Context(), accountID, items); err != nil {
			log.Printf("Warning: failed to cache portfolio report: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, items)
}

// GetRealizedPL handles GET /accounts/{id}/pnl?category=
func (h *Handler) GetRealizedPL(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	category := models.Category(r.URL.Query().Get("category"))
	if category == "" {
		category = models.CategoryEquity
	}
	if !category.Valid() {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	if h.redis != nil {
		var cached json.RawMessage
		if err := h.redis.GetPnL(r.Context(), accountID, string(category), &cached); err == nil {
			reportComputations.WithLabelValues("pnl", "cache").Inc()
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	start := time.Now()
	var report interface{}
	var err error
	if category == models.CategoryEquity {
		report, err = h.engine.ComputeEquityPL(r.Context(), accountID)
	} else {
		report, err = h.engine.ComputeFnoPL(r.Context(), accountID, category)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	replayDuration.Observe(time.Since(start).Seconds())
	reportComputations.WithLabelValues("pnl", "computed").Inc()

	if h.redis != nil {
		if err := h.redis.SetPnL(r.Context(), accountID, string(category), report); err != nil {
			log.Printf("Warning: failed to cache pnl report: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, report)
}

// PreviewCharges handles POST /charges/preview so the entry form can
// show fees before a transaction is committed
func (h *Handler) PreviewCharges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NotionalAmount string `json:"notional_amount"`
		Side           string `json:"side"`
		Exchange       string `json:"exchange"`
		Category       string `json:"category"`
		InstrumentKind string `json:"instrument_kind,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	notional, err := decimal.NewFromString(req.NotionalAmount)
	if err != nil {
		http.Error(w, "notional_amount must be a number", http.StatusBadRequest)
		return
	}
	side := models.Side(req.Side)
	if !side.Valid() {
		http.Error(w, "unknown side", http.StatusBadRequest)
		return
	}
	exchange := models.Exchange(req.Exchange)
	if !exchange.Valid() {
		http.Error(w, "unknown exchange", http.StatusBadRequest)
		return
	}
	category := models.Category(req.Category)
	if !category.Valid() {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	breakdown, total, err := h.engine.CalculateCharges(r.Context(), notional, side, exchange, category, models.InstrumentKind(req.InstrumentKind))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	chargePreviews.Inc()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"charges": breakdown,
		"total":   total,
	})
}

// ListFeeRates handles GET /fees
func (h *Handler) ListFeeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.db.ListFeeRates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

// UpdateFeeRate handles PUT /fees
func (h *Handler) UpdateFeeRate(w http.ResponseWriter, r *http.Request) {
	var rate models.FeeRate
	if err := json.NewDecoder(r.Body).Decode(&rate); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if rate.ChargeKind == "" || !rate.Exchange.Valid() || !rate.Category.Valid() || !rate.Side.Valid() {
		http.Error(w, "charge_kind, exchange, category and side are required", http.StatusBadRequest)
		return
	}

	if err := h.db.UpsertFeeRate(r.Context(), &rate); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if h.redis != nil {
		if err := h.redis.InvalidateAll(r.Context()); err != nil {
			log.Printf("Warning: failed to invalidate report cache: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, rate)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.producer != nil {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

func (h *Handler) invalidateAccount(ctx context.Context, accountID int) {
	if h.redis == nil {
		return
	}
	if err := h.redis.InvalidateAccount(ctx, accountID); err != nil {
		log.Printf("Warning: failed to invalidate report cache for account %d: %v", accountID, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
