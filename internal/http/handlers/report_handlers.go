package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DashboardHandler godoc
// @Summary Admin dashboard figures
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} report.Dashboard
// @Failure 500 {string} string "Internal error"
// @Router /reports/dashboard [get]
func DashboardHandler(w http.ResponseWriter, r *http.Request) {
	d, err := reports.Dashboard(r.Context())
	if err != nil {
		logger.Error("dashboard failed", zap.Error(err))
		http.Error(w, "failed to compute dashboard", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, d)
}

// BestSellersHandler godoc
// @Summary Best selling products still in inventory
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of products (default 5)"
// @Success 200 {array} report.BestSeller
// @Router /reports/best-sellers [get]
func BestSellersHandler(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			http.Error(w, "limit must be greater than zero", http.StatusBadRequest)
			return
		}
		limit = v
	}
	out, err := reports.BestSellers(r.Context(), limit)
	if err != nil {
		logger.Error("best sellers failed", zap.Error(err))
		http.Error(w, "failed to compute best sellers", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, out)
}

// MonthlySalesHandler godoc
// @Summary Total sales of a month
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year (default current)"
// @Param month query int false "Month 1-12 (default current)"
// @Success 200 {object} MonthlySalesResult
// @Failure 400 {string} string "Invalid input"
// @Router /reports/monthly-sales [get]
func MonthlySalesHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if s := q.Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = v
	}
	if s := q.Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 12 {
			http.Error(w, "month must be between 1 and 12", http.StatusBadRequest)
			return
		}
		month = v
	}

	total, err := reports.MonthlySales(r.Context(), time.Month(month), year)
	if err != nil {
		logger.Error("monthly sales failed", zap.Error(err))
		http.Error(w, "failed to compute monthly sales", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, MonthlySalesResult{Year: year, Month: month, Total: total})
}

// StockReportHandler godoc
// @Summary Stock level of every product
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {array} report.StockLine
// @Router /reports/stock [get]
func StockReportHandler(w http.ResponseWriter, r *http.Request) {
	out, err := reports.Stock(r.Context())
	if err != nil {
		http.Error(w, "failed to compute stock report", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, out)
}

// ExportReportsHandler godoc
// @Summary Export revenue, stock and top product reports as CSV
// @Tags reports
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /reports/export [get]
func ExportReportsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="reports.csv"`)
	if err := reports.ExportCSV(r.Context(), w); err != nil {
		logger.Error("report export failed", zap.Error(err))
		http.Error(w, "failed to export reports", http.StatusInternalServerError)
	}
}

// LowStockAlertsHandler godoc
// @Summary Recent low stock alerts, newest first
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of entries (default 50)"
// @Success 200 {array} alerts.LowStockEntry
// @Router /alerts/low-stock [get]
func LowStockAlertsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			http.Error(w, "limit must be greater than zero", http.StatusBadRequest)
			return
		}
		limit = v
	}
	entries, err := alertLog.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("low stock alerts failed", zap.Error(err))
		http.Error(w, "failed to read alerts", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, entries)
}
