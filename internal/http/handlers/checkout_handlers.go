package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rogerio-castellano/shopnesty/internal/idempotency"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// CheckoutHandler godoc
// @Summary Check out cart lines
// @Description Creates a transaction from the listed products, or from the selected lines when the list is empty. Repeating a request with the same Idempotency-Key returns the first response.
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client generated key"
// @Param checkout body CheckoutRequest false "Products to check out"
// @Success 201 {object} reconcile.CheckoutResult
// @Failure 400 {string} string "No items selected"
// @Failure 404 {string} string "Item not found"
// @Failure 409 {string} string "Request in progress"
// @Router /cart/checkout [post]
func CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := readOptionalJSON(w, r, &req); err != nil {
		http.Error(w, reconcile.MsgInvalidArgument, http.StatusBadRequest)
		return
	}

	id, _ := identity(r)
	ctx := r.Context()

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key != "" && idempotencyStore != nil {
		key = id.UserID + ":" + key
		cached, found, err := idempotencyStore.Begin(ctx, key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			http.Error(w, "request with this Idempotency-Key is in progress", http.StatusConflict)
			return
		case err != nil:
			logger.Error("idempotency lookup failed", zap.Error(err))
			http.Error(w, reconcile.MsgNetworkFailure, http.StatusServiceUnavailable)
			return
		case found:
			w.Header().Set("Idempotent-Replayed", "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(cached)
			return
		}
	} else {
		key = ""
	}

	result, err := checkout(r, id.UserID, req.ProductIDs)
	if err != nil {
		if key != "" {
			_ = idempotencyStore.Abort(ctx, key)
		}
		writeEngineError(w, "checkout", err)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	if key != "" {
		if err := idempotencyStore.Complete(ctx, key, body); err != nil {
			logger.Warn("idempotent response not stored", zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func checkout(r *http.Request, shopperID string, productIDs []string) (reconcile.CheckoutResult, error) {
	if len(productIDs) == 0 {
		view, err := engine.Cart(r.Context(), shopperID)
		if err != nil {
			return reconcile.CheckoutResult{}, err
		}
		for _, l := range view.Lines {
			if l.Selected {
				productIDs = append(productIDs, l.ProductID)
			}
		}
	}
	return engine.Checkout(r.Context(), shopperID, productIDs)
}
