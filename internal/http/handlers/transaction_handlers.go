package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"go.uber.org/zap"
)

func transactionFilterFromQuery(r *http.Request) (repo.TransactionFilter, error) {
	q := r.URL.Query()
	var f repo.TransactionFilter
	var err error
	if f.Since, err = parseTimeParam(q.Get("since")); err != nil {
		return f, errors.New("invalid since date format")
	}
	if f.Until, err = parseTimeParam(q.Get("until")); err != nil {
		return f, errors.New("invalid until date format")
	}
	f.ShopperID = q.Get("shopper_id")
	return f, nil
}

func listTransactions(w http.ResponseWriter, r *http.Request, f repo.TransactionFilter) {
	ts, err := transactionRepo.List(r.Context(), f)
	if err != nil {
		logger.Error("list transactions failed", zap.Error(err))
		http.Error(w, "could not fetch transactions", http.StatusInternalServerError)
		return
	}
	if ts == nil {
		ts = []models.Transaction{}
	}
	respond(w, http.StatusOK, TransactionsResult{Data: ts, Meta: Meta{TotalCount: len(ts)}})
}

// GetTransactionsHandler godoc
// @Summary List transactions, newest first
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param shopper_id query string false "Only this shopper's transactions"
// @Param since query string false "From this timestamp (RFC3339)"
// @Param until query string false "Until this timestamp (RFC3339)"
// @Success 200 {object} TransactionsResult
// @Failure 400 {string} string "Invalid input"
// @Router /transactions [get]
func GetTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	listTransactions(w, r, f)
}

// GetMyTransactionsHandler godoc
// @Summary List the caller's transactions, newest first
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TransactionsResult
// @Router /me/transactions [get]
func GetMyTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, _ := identity(r)
	f.ShopperID = id.UserID
	listTransactions(w, r, f)
}

// GetTransactionByIDHandler godoc
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {string} string "Not found"
// @Router /transactions/{id} [get]
func GetTransactionByIDHandler(w http.ResponseWriter, r *http.Request) {
	t, err := transactionRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repo.ErrTransactionNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not fetch transaction", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, t)
}

// UpdatePaymentHandler godoc
// @Summary Record a payment on a transaction
// @Description Sets status, amount paid and method; change is computed when more than the total was paid.
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param payment body PaymentRequest true "Payment"
// @Success 200 {object} models.Transaction
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {string} string "Not found"
// @Router /transactions/{id}/payment [patch]
func UpdatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	status, err := models.ParsePaymentStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	method, err := models.ParsePaymentMethod(req.Method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AmountPaid < 0 {
		http.Error(w, "amount_paid cannot be negative", http.StatusBadRequest)
		return
	}

	t, err := transactionRepo.UpdatePayment(r.Context(), chi.URLParam(r, "id"), models.Payment{
		Status:     status,
		AmountPaid: models.RoundCents(req.AmountPaid),
		Method:     method,
	})
	if err != nil {
		if errors.Is(err, repo.ErrTransactionNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		logger.Error("update payment failed", zap.Error(err))
		http.Error(w, "could not update payment", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, t)
}
