package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"betledger/models"
	"betledger/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	betsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betledger_bets_placed_total",
		Help: "Total bets accepted by the ledger",
	})

	betsSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betledger_bets_settled_total",
		Help: "Total bet settlements, labeled by resulting status",
	}, []string{"status"})
)

// Handler wires the ledger services to the HTTP surface. It owns no business
// logic: every rule lives behind the service interfaces.
type Handler struct {
	betting  service.BettingService
	balances service.BalanceService
}

// NewHandler creates a new API handler
func NewHandler(betting service.BettingService, balances service.BalanceService) *Handler {
	return &Handler{betting: betting, balances: balances}
}

// userID extracts the authenticated user id. Authentication itself happens
// upstream (gateway/session layer); by the time a request reaches this
// service the header carries a validated identity.
func userID(r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) PlaceBetHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/bets"))
	defer timer.ObserveDuration()

	uid, ok := userID(r)
	if !ok {
		h.respondError(w, "POST", "/bets", http.StatusUnauthorized, "Authentication required")
		return
	}

	var in placeBetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, "POST", "/bets", http.StatusBadRequest, "Malformed JSON body")
		return
	}

	result, err := h.betting.PlaceBet(r.Context(), uid, in.toRequest())
	if err != nil {
		h.respondServiceError(w, "POST", "/bets", err)
		return
	}

	betsPlacedTotal.Inc()
	h.respondJSON(w, "POST", "/bets", http.StatusCreated, placeBetResponse{
		BetID:   result.BetID,
		Balance: result.NewBalance,
	})
}

func (h *Handler) SetBetStatusHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PATCH", "/bets/{id}/status"))
	defer timer.ObserveDuration()

	uid, ok := userID(r)
	if !ok {
		h.respondError(w, "PATCH", "/bets/{id}/status", http.StatusUnauthorized, "Authentication required")
		return
	}

	betID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || betID <= 0 {
		h.respondError(w, "PATCH", "/bets/{id}/status", http.StatusBadRequest, "Invalid bet id")
		return
	}

	var in setStatusInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, "PATCH", "/bets/{id}/status", http.StatusBadRequest, "Malformed JSON body")
		return
	}

	result, err := h.betting.SetBetStatus(r.Context(), uid, betID, models.BetStatus(in.Status))
	if err != nil {
		h.respondServiceError(w, "PATCH", "/bets/{id}/status", err)
		return
	}

	betsSettledTotal.WithLabelValues(in.Status).Inc()
	h.respondJSON(w, "PATCH", "/bets/{id}/status", http.StatusOK, settleBetResponse{
		Balance: result.NewBalance,
		Bet:     toBetView(result.Bet),
	})
}

func (h *Handler) GetBetsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/bets"))
	defer timer.ObserveDuration()

	uid, ok := userID(r)
	if !ok {
		h.respondError(w, "GET", "/bets", http.StatusUnauthorized, "Authentication required")
		return
	}

	bets, err := h.betting.GetBetHistory(r.Context(), uid)
	if err != nil {
		h.respondServiceError(w, "GET", "/bets", err)
		return
	}

	views := make([]betView, 0, len(bets))
	for _, bet := range bets {
		views = append(views, toBetView(bet))
	}
	h.respondJSON(w, "GET", "/bets", http.StatusOK, map[string]any{"bets": views})
}

func (h *Handler) GetBalancesHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/balance"))
	defer timer.ObserveDuration()

	uid, ok := userID(r)
	if !ok {
		h.respondError(w, "GET", "/balance", http.StatusUnauthorized, "Authentication required")
		return
	}

	balances, err := h.balances.GetBalances(r.Context(), uid)
	if err != nil {
		h.respondServiceError(w, "GET", "/balance", err)
		return
	}

	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, balanceView{
			BalanceType: b.BalanceType,
			Amount:      b.Amount,
			UpdatedAt:   b.UpdatedAt,
		})
	}
	h.respondJSON(w, "GET", "/balance", http.StatusOK, map[string]any{"balance": views})
}

func (h *Handler) AdjustBalanceHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PATCH", "/balance"))
	defer timer.ObserveDuration()

	uid, ok := userID(r)
	if !ok {
		h.respondError(w, "PATCH", "/balance", http.StatusUnauthorized, "Authentication required")
		return
	}

	var in adjustBalanceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, "PATCH", "/balance", http.StatusBadRequest, "Malformed JSON body")
		return
	}

	balance, err := h.balances.AdjustBalance(r.Context(), uid, in.Amount, service.AdjustOperation(in.Operation))
	if err != nil {
		h.respondServiceError(w, "PATCH", "/balance", err)
		return
	}

	h.respondJSON(w, "PATCH", "/balance", http.StatusOK, adjustBalanceResponse{Balance: balance})
}

func (h *Handler) GetBalanceHistoryHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/balance/history"))
	defer timer.ObserveDuration()

	uid, ok := userID(r)
	if !ok {
		h.respondError(w, "GET", "/balance/history", http.StatusUnauthorized, "Authentication required")
		return
	}

	balanceType := models.BalanceType(r.URL.Query().Get("balance_type"))
	if balanceType == "" {
		balanceType = models.BalanceTypeBets
	}
	excludeManual := r.URL.Query().Get("exclude_manual") == "true"

	history, err := h.balances.GetBalanceHistory(r.Context(), uid, balanceType, excludeManual)
	if err != nil {
		h.respondServiceError(w, "GET", "/balance/history", err)
		return
	}

	views := make([]historyView, 0, len(history))
	for _, entry := range history {
		views = append(views, historyView{
			ID:           entry.ID,
			BalanceType:  entry.BalanceType,
			AmountBefore: entry.AmountBefore,
			AmountAfter:  entry.AmountAfter,
			ChangeType:   entry.ChangeType,
			RelatedBetID: entry.RelatedBetID,
			Description:  entry.Description,
			CreatedAt:    entry.CreatedAt,
		})
	}
	h.respondJSON(w, "GET", "/balance/history", http.StatusOK, map[string]any{"history": views})
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, "GET", "/healthz", http.StatusOK, map[string]string{"status": "ok"})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Infrastructure failures are logged in full and surfaced as a generic 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, method, endpoint string, err error) {
	var validationErr *service.ValidationError
	var fundsErr *service.InsufficientFundsError

	switch {
	case errors.As(err, &validationErr):
		h.respondError(w, method, endpoint, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &fundsErr):
		httpRequestsTotal.WithLabelValues(method, endpoint, "400").Inc()
		respondWithJSON(w, http.StatusBadRequest, map[string]any{
			"message":   fundsErr.Error(),
			"available": fundsErr.Available,
			"required":  fundsErr.Required,
		})
	case errors.Is(err, service.ErrBalanceNotFound):
		h.respondError(w, method, endpoint, http.StatusNotFound, "Balance not found")
	case errors.Is(err, service.ErrBetNotFound):
		h.respondError(w, method, endpoint, http.StatusNotFound, "Bet not found")
	case errors.Is(err, service.ErrConcurrencyConflict):
		h.respondError(w, method, endpoint, http.StatusConflict, "Conflicting update, retry the operation")
	default:
		log.WithError(err).WithFields(log.Fields{
			"method":   method,
			"endpoint": endpoint,
		}).Error("Request failed")
		h.respondError(w, method, endpoint, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, method, endpoint string, status int, payload any) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	respondWithJSON(w, status, payload)
}

func (h *Handler) respondError(w http.ResponseWriter, method, endpoint string, status int, message string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	respondWithJSON(w, status, map[string]string{"message": message})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
