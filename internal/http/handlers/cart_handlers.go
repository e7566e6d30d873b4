package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
)

// GetCartHandler godoc
// @Summary Get the caller's cart
// @Description Lines are joined with live product data; lines whose product was deleted are flagged missing.
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} reconcile.CartView
// @Failure 503 {string} string "Service temporarily unavailable"
// @Router /cart [get]
func GetCartHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	view, err := engine.Cart(r.Context(), id.UserID)
	if err != nil {
		writeEngineError(w, "cart", err)
		return
	}
	respond(w, http.StatusOK, view)
}

// AddToCartHandler godoc
// @Summary Reserve one unit of a product in the cart
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body AddToCartRequest true "Product to add"
// @Success 200 {object} models.CartLine
// @Failure 400 {string} string "Invalid request"
// @Failure 404 {string} string "Item not found"
// @Failure 409 {string} string "Out of stock"
// @Router /cart/items [post]
func AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		http.Error(w, reconcile.MsgInvalidArgument, http.StatusBadRequest)
		return
	}

	id, _ := identity(r)
	line, err := engine.AddToCart(r.Context(), id.UserID, req.ProductID)
	if err != nil {
		writeEngineError(w, "add_to_cart", err)
		return
	}
	respond(w, http.StatusOK, line)
}

func changeQuantity(w http.ResponseWriter, r *http.Request, dir reconcile.Direction) {
	id, _ := identity(r)
	change, err := engine.ChangeQuantity(r.Context(), id.UserID, chi.URLParam(r, "productID"), dir)
	if err != nil {
		writeEngineError(w, "change_quantity", err)
		return
	}
	respond(w, http.StatusOK, change)
}

// IncrementLineHandler godoc
// @Summary Reserve one more unit of a cart line
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productID path string true "Product ID"
// @Success 200 {object} reconcile.QuantityChange
// @Failure 404 {string} string "Item not found"
// @Failure 409 {string} string "Out of stock"
// @Router /cart/items/{productID}/increment [post]
func IncrementLineHandler(w http.ResponseWriter, r *http.Request) {
	changeQuantity(w, r, reconcile.Increment)
}

// DecrementLineHandler godoc
// @Summary Release one unit of a cart line
// @Description A line never drops below one unit; at one the call succeeds with changed=false.
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productID path string true "Product ID"
// @Success 200 {object} reconcile.QuantityChange
// @Failure 404 {string} string "Item not found"
// @Router /cart/items/{productID}/decrement [post]
func DecrementLineHandler(w http.ResponseWriter, r *http.Request) {
	changeQuantity(w, r, reconcile.Decrement)
}

// DeleteLineHandler godoc
// @Summary Remove a cart line and return its units to stock
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productID path string true "Product ID"
// @Success 200 {object} DeleteLineResult
// @Router /cart/items/{productID} [delete]
func DeleteLineHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	productID := chi.URLParam(r, "productID")
	restored, err := engine.DeleteLine(r.Context(), id.UserID, productID)
	if err != nil {
		writeEngineError(w, "delete_line", err)
		return
	}
	respond(w, http.StatusOK, DeleteLineResult{ProductID: productID, Restored: restored})
}

// ToggleSelectionHandler godoc
// @Summary Flip the checkout selection of a cart line
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productID path string true "Product ID"
// @Success 200 {object} models.CartLine
// @Failure 404 {string} string "Item not found"
// @Router /cart/items/{productID}/toggle [post]
func ToggleSelectionHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	line, err := engine.ToggleSelection(r.Context(), id.UserID, chi.URLParam(r, "productID"))
	if err != nil {
		writeEngineError(w, "toggle_selection", err)
		return
	}
	respond(w, http.StatusOK, line)
}

// SelectAllHandler godoc
// @Summary Select or clear every cart line
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param selection body SelectAllRequest true "Selection state"
// @Success 200 {object} models.Cart
// @Router /cart/select-all [post]
func SelectAllHandler(w http.ResponseWriter, r *http.Request) {
	var req SelectAllRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, reconcile.MsgInvalidArgument, http.StatusBadRequest)
		return
	}
	id, _ := identity(r)
	cart, err := engine.SelectAll(r.Context(), id.UserID, req.Selected)
	if err != nil {
		writeEngineError(w, "select_all", err)
		return
	}
	respond(w, http.StatusOK, cart)
}

// BulkDeleteHandler godoc
// @Summary Delete every selected cart line
// @Description Lines are deleted one at a time; deletion stops at the first failure and earlier lines stay deleted.
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BulkDeleteResult
// @Failure 400 {string} string "No items selected"
// @Router /cart/bulk-delete [post]
func BulkDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	outcomes, err := engine.BulkDelete(r.Context(), id.UserID)
	if err != nil && len(outcomes) == 0 {
		writeEngineError(w, "bulk_delete", err)
		return
	}
	result := BulkDeleteResult{Outcomes: outcomes}
	status := http.StatusOK
	if err != nil {
		result.Error = reconcile.Message(err)
		status = engineStatus(err)
	}
	respond(w, status, result)
}
