package handlers

import (
	"net/http"

	"github.com/rogerio-castellano/shopnesty/internal/alerts"
	"github.com/rogerio-castellano/shopnesty/internal/idempotency"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"github.com/rogerio-castellano/shopnesty/internal/report"
	"go.uber.org/zap"
)

var (
	productRepo     repo.ProductRepository
	movementRepo    repo.MovementRepository
	userRepo        repo.UserRepository
	transactionRepo repo.TransactionRepository

	engine           *reconcile.Engine
	reports          *report.Service
	alertLog         alerts.Log
	idempotencyStore idempotency.Store

	logger = zap.NewNop()
)

func SetProductRepo(r repo.ProductRepository) {
	productRepo = r
}

func SetMovementRepo(r repo.MovementRepository) {
	movementRepo = r
}

func SetUserRepo(r repo.UserRepository) {
	userRepo = r
}

func SetTransactionRepo(r repo.TransactionRepository) {
	transactionRepo = r
}

func SetEngine(e *reconcile.Engine) {
	engine = e
}

func SetReportService(s *report.Service) {
	reports = s
}

func SetAlertLog(l alerts.Log) {
	alertLog = l
}

// SetIdempotencyStore enables Idempotency-Key handling on checkout. Without
// a store the header is ignored.
func SetIdempotencyStore(s idempotency.Store) {
	idempotencyStore = s
}

func SetLogger(l *zap.Logger) {
	logger = l
}

// HealthHandler godoc
// @Summary Liveness check
// @Tags health
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
