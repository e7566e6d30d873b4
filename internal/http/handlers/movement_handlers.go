package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"go.uber.org/zap"
)

// AdjustQuantityHandler godoc
// @Summary Adjust quantity of a product
// @Description Restocks (positive delta) or corrects (negative delta) the available stock.
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param adjustment body QuantityAdjustmentRequest true "Quantity change"
// @Success 200 {object} ProductResponse
// @Failure 400 {string} string "Invalid adjustment"
// @Failure 404 {string} string "Not found"
// @Failure 409 {string} string "Stock cannot go below zero"
// @Router /products/{id}/adjust [post]
// @Security BearerAuth
func AdjustQuantityHandler(w http.ResponseWriter, r *http.Request) {
	var req QuantityAdjustmentRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	reason := models.MovementReason(req.Reason)
	if reason != "" && reason != models.ReasonRestock && reason != models.ReasonAdjust {
		http.Error(w, "reason must be 'restock' or 'adjust'", http.StatusBadRequest)
		return
	}

	product, err := engine.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta, reason)
	if err != nil {
		writeEngineError(w, "adjust_stock", err)
		return
	}
	respond(w, http.StatusOK, toProductResponse(product))
}

func movementFilterFromQuery(r *http.Request) (repo.MovementFilter, error) {
	q := r.URL.Query()
	var mf repo.MovementFilter
	var err error

	if mf.Since, err = parseTimeParam(q.Get("since")); err != nil {
		return mf, errors.New("invalid since date format")
	}
	if mf.Until, err = parseTimeParam(q.Get("until")); err != nil {
		return mf, errors.New("invalid until date format")
	}
	if s := q.Get("reason"); s != "" {
		switch reason := models.MovementReason(s); reason {
		case models.ReasonReserve, models.ReasonRelease, models.ReasonRestock, models.ReasonAdjust:
			mf.Reason = reason
		default:
			return mf, errors.New("invalid reason")
		}
	}
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return mf, errors.New("invalid limit format")
		}
		if v <= 0 {
			return mf, errors.New("limit must be greater than zero")
		}
		mf.Limit = &v
	}
	if s := q.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return mf, errors.New("invalid offset format")
		}
		if v < 0 {
			return mf, errors.New("offset must be zero or positive")
		}
		mf.Offset = &v
	}
	return mf, nil
}

func toMovementResponse(m models.Movement) MovementResponse {
	return MovementResponse{
		ID:        m.ID,
		ProductID: m.ProductID,
		Delta:     m.Delta,
		Reason:    string(m.Reason),
		ShopperID: m.ShopperID,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

// GetMovementsHandler godoc
// @Summary Get product movement logs
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param since query string false "Filter movements from this timestamp (RFC3339)"
// @Param until query string false "Filter movements until this timestamp (RFC3339)"
// @Param reason query string false "Filter by reason (reserve, release, restock, adjust)"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {object} MovementsSearchResult
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {string} string "Product not found"
// @Failure 500 {string} string "Internal error"
// @Router /products/{id}/movements [get]
func GetMovementsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := productRepo.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrProductNotFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not fetch product", http.StatusInternalServerError)
		return
	}

	mf, err := movementFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	movements, total, err := movementRepo.GetByProductID(r.Context(), id, mf)
	if err != nil {
		logger.Error("could not retrieve movements", zap.String("product_id", id), zap.Error(err))
		http.Error(w, "could not retrieve movements", http.StatusInternalServerError)
		return
	}

	response := MovementsSearchResult{
		Data: make([]MovementResponse, len(movements)),
		Meta: Meta{TotalCount: total},
	}
	for i, m := range movements {
		response.Data[i] = toMovementResponse(m)
	}
	respond(w, http.StatusOK, response)
}

// ExportMovementsHandler godoc
// @Summary Export product movement logs
// @Tags movements
// @Produce text/csv,application/json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param format query string true "Export format (csv or json)"
// @Param since query string false "Filter from timestamp (RFC3339)"
// @Param until query string false "Filter until timestamp (RFC3339)"
// @Success 200 {file} file
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {string} string "Product not found"
// @Failure 500 {string} string "Internal error"
// @Router /products/{id}/movements/export [get]
func ExportMovementsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	format := r.URL.Query().Get("format")
	if format != "csv" && format != "json" {
		http.Error(w, "format must be 'csv' or 'json'", http.StatusBadRequest)
		return
	}

	mf, err := movementFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mf.Limit, mf.Offset = nil, nil

	if _, err := productRepo.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrProductNotFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not fetch product", http.StatusInternalServerError)
		return
	}

	movements, _, err := movementRepo.GetByProductID(r.Context(), id, mf)
	if err != nil {
		http.Error(w, "could not retrieve movements", http.StatusInternalServerError)
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="movements.json"`)
		out := make([]MovementResponse, len(movements))
		for i, m := range movements {
			out[i] = toMovementResponse(m)
		}
		_ = json.NewEncoder(w).Encode(out)

	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="movements.csv"`)

		csvWriter := csv.NewWriter(w)
		_ = csvWriter.Write([]string{"id", "product_id", "delta", "reason", "shopper_id", "created_at"})
		for _, m := range movements {
			_ = csvWriter.Write([]string{
				m.ID,
				m.ProductID,
				strconv.Itoa(m.Delta),
				string(m.Reason),
				m.ShopperID,
				m.CreatedAt.Format(time.RFC3339),
			})
		}
		csvWriter.Flush()
	}
}
