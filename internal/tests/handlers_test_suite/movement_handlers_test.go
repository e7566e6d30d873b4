package handlers_test_suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	api "github.com/rogerio-castellano/shopnesty/internal/http"
	handler "github.com/rogerio-castellano/shopnesty/internal/http/handlers"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

func TestAdjustQuantityHandler(t *testing.T) {
	t.Cleanup(clearAllProducts)

	r := api.NewRouter()
	product := handler.ProductRequest{Name: "InventoryItem", Price: 10.0, Quantity: 10}
	w := createProduct(r, product)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create product")
	}
	var created handler.ProductRequest
	json.NewDecoder(w.Body).Decode(&created)

	t.Run("Increase quantity", func(t *testing.T) {
		adj := handler.QuantityAdjustmentRequest{Delta: 5}
		w := adjustProduct(r, created.Id, adj)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}
		var resp handler.ProductResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Quantity != 15 {
			t.Errorf("expected quantity 15, got %v", resp.Quantity)
		}
	})

	t.Run("Decrease quantity", func(t *testing.T) {
		adj := handler.QuantityAdjustmentRequest{Delta: -3}
		w := adjustProduct(r, created.Id, adj)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}

		var resp handler.ProductResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Quantity != 12.0 {
			t.Errorf("expected quantity 12, got %v", resp.Quantity)
		}
	})

	t.Run("Too much decrease (underflow)", func(t *testing.T) {
		adj := handler.QuantityAdjustmentRequest{Delta: -100}
		w := adjustProduct(r, created.Id, adj)

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409 Conflict, got %d", w.Code)
		}
	})

	t.Run("Unknown ID", func(t *testing.T) {
		w := adjustProduct(r, "abc", handler.QuantityAdjustmentRequest{Delta: 1})
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 Not Found, got %d", w.Code)
		}
	})

	t.Run("Zero delta", func(t *testing.T) {
		w := adjustProduct(r, created.Id, handler.QuantityAdjustmentRequest{Delta: 0})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 Bad Request, got %d", w.Code)
		}
	})

	t.Run("Unsupported reason", func(t *testing.T) {
		w := adjustProduct(r, created.Id, handler.QuantityAdjustmentRequest{Delta: 1, Reason: "reserve"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 Bad Request, got %d", w.Code)
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/products/%s/adjust", created.Id), bytes.NewBufferString(`{`))
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 Bad Request, got %d", w.Code)
		}
	})
}

func TestAdjustQuantityHandler_AtomicAndConcurrent(t *testing.T) {
	t.Cleanup(clearAllProducts)
	r := api.NewRouter()

	product := handler.ProductRequest{Name: "ConcurrentItem", Price: 10.0, Quantity: 5}
	w := createProduct(r, product)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create product")
	}
	var created handler.ProductResponse
	json.NewDecoder(w.Body).Decode(&created)

	// Try deducting more than available
	t.Run("Reject over-deduction", func(t *testing.T) {
		adj := handler.QuantityAdjustmentRequest{Delta: -10}
		w := adjustProduct(r, created.Id, adj)

		if w.Code != http.StatusConflict {
			t.Errorf("expected 409 Conflict, got %d", w.Code)
		}
	})

	// Concurrent increment and decrement
	t.Run("Concurrent adjustments are safe", func(t *testing.T) {
		var wg sync.WaitGroup
		var successCount atomic.Int32
		totalRequests := 10

		for i := range totalRequests {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				delta := -1
				if i%2 == 0 {
					delta = +1
				}
				adj := handler.QuantityAdjustmentRequest{Delta: delta}
				w := adjustProduct(r, created.Id, adj)

				if w.Code == http.StatusOK {
					successCount.Add(1)
				}
			}(i)
		}
		wg.Wait()

		getReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s", created.Id), nil)
		getReq.Header.Set("Authorization", "Bearer "+token)
		getW := httptest.NewRecorder()
		r.ServeHTTP(getW, getReq)
		var final handler.ProductResponse
		json.NewDecoder(getW.Body).Decode(&final)
		if final.Quantity < 0 {
			t.Errorf("quantity should not go negative, got %d", final.Quantity)
		}
		if successCount.Load() != int32(totalRequests) {
			t.Errorf("expected all %d adjustments to succeed, got %d", totalRequests, successCount.Load())
		}
		if final.Quantity != 5 {
			t.Errorf("expected quantity back at 5, got %d", final.Quantity)
		}
	})
}

func TestGetMovementsHandler(t *testing.T) {
	t.Cleanup(clearAllProducts)
	r := api.NewRouter()

	product := handler.ProductRequest{Name: "Box", Price: 50.0, Quantity: 10}
	w := createProduct(r, product)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create product")
	}
	var created handler.ProductResponse
	json.NewDecoder(w.Body).Decode(&created)

	// Adjust quantity twice to generate movement log
	adjust := func(delta int) {
		adj := handler.QuantityAdjustmentRequest{Delta: delta}
		w := adjustProduct(r, created.Id, adj)
		if w.Code != http.StatusOK {
			t.Fatalf("failed to adjust quantity: delta %d", delta)
		}
	}
	adjust(3)
	adjust(-2)

	t.Run("Returns movements", func(t *testing.T) {
		got := listMovements(t, r, created.Id, "")
		if len(got.Data) != 3 {
			t.Fatalf("expected initial restock plus 2 adjustments, got %d", len(got.Data))
		}
		wantReasons := []string{"adjust", "restock", "restock"}
		for i, m := range got.Data {
			if m.Reason != wantReasons[i] {
				t.Errorf("movement %d: expected reason %q, got %q", i, wantReasons[i], m.Reason)
			}
		}
	})

	t.Run("Filter by reason", func(t *testing.T) {
		if got := listMovements(t, r, created.Id, "reason=restock"); got.Meta.TotalCount != 2 {
			t.Errorf("expected 2 restock movements, got %d", got.Meta.TotalCount)
		}
		if got := listMovements(t, r, created.Id, "reason=reserve"); len(got.Data) != 0 {
			t.Errorf("expected no reserve movements, got %d", len(got.Data))
		}
		w := doRequest(r, http.MethodGet, "/products/"+created.Id+"/movements?reason=theft", token, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 Bad Request, got %d", w.Code)
		}
	})

	t.Run("Unknown product ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/abc/movements", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 Not Found, got %d", w.Code)
		}
	})
}

func listMovements(t *testing.T, r http.Handler, productID, query string) handler.MovementsSearchResult {
	t.Helper()
	w := doRequest(r, http.MethodGet, fmt.Sprintf("/products/%s/movements?%s", productID, query), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET movements?%s: expected 200, got %d (%s)", query, w.Code, w.Body.String())
	}
	var result handler.MovementsSearchResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func TestGetMovementsHandler_Filtering(t *testing.T) {
	t.Cleanup(clearAllProducts)
	r := api.NewRouter()

	created, err := mustCreateProduct(r, handler.ProductRequest{Name: "FilterBox", Price: 80.0, Quantity: 10})
	if err != nil {
		t.Fatal(err)
	}

	addMovement(models.Movement{
		ProductID: created.Id,
		Delta:     5,
		Reason:    models.ReasonRestock,
		CreatedAt: time.Now().Add(-48 * time.Hour).UTC(),
	})
	if w := adjustProduct(r, created.Id, handler.QuantityAdjustmentRequest{Delta: 2}); w.Code != http.StatusOK {
		t.Fatalf("failed to adjust product: %d", w.Code)
	}

	ago := func(h int) string { return time.Now().Add(-time.Duration(h) * time.Hour).Format(time.RFC3339) }

	// creation restock and the adjustment are recent, the backdated restock is 48h old
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"since excludes backdated", "since=" + ago(12), 2},
		{"until keeps only backdated", "until=" + ago(24), 1},
		{"full range", "since=" + ago(72) + "&until=" + time.Now().Add(time.Minute).Format(time.RFC3339), 3},
		{"empty window", "since=" + ago(10) + "&until=" + ago(5), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listMovements(t, r, created.Id, tt.query)
			if len(got.Data) != tt.want {
				t.Errorf("expected %d movements, got %d", tt.want, len(got.Data))
			}
			if got.Meta.TotalCount != tt.want {
				t.Errorf("expected total_count %d, got %d", tt.want, got.Meta.TotalCount)
			}
		})
	}
}

func TestGetMovementsHandler_Pagination(t *testing.T) {
	t.Cleanup(clearAllProducts)
	r := api.NewRouter()

	created, err := mustCreateProduct(r, handler.ProductRequest{Name: "PagedWidget", Price: 20.0, Quantity: 5})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []int{+1, -1, +2} {
		if w := adjustProduct(r, created.Id, handler.QuantityAdjustmentRequest{Delta: d}); w.Code != http.StatusOK {
			t.Fatalf("failed to adjust delta %d", d)
		}
	}

	// four movements in total: the creation restock plus three adjustments
	tests := []struct {
		name      string
		query     string
		wantItems int
	}{
		{"limit only", "limit=1", 1},
		{"offset only", "offset=1", 3},
		{"limit and offset", "limit=2&offset=3", 1},
		{"offset past end", "offset=10", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listMovements(t, r, created.Id, tt.query)
			if len(got.Data) != tt.wantItems {
				t.Errorf("expected %d items, got %d", tt.wantItems, len(got.Data))
			}
			if got.Meta.TotalCount != 4 {
				t.Errorf("expected total_count 4, got %d", got.Meta.TotalCount)
			}
		})
	}

	t.Run("newest first", func(t *testing.T) {
		got := listMovements(t, r, created.Id, "limit=1")
		if len(got.Data) != 1 || got.Data[0].Delta != 2 {
			t.Errorf("expected latest adjustment (+2) first, got %+v", got.Data)
		}
	})
}

func TestLowStockAlert(t *testing.T) {
	t.Cleanup(clearAllProducts)
	r := api.NewRouter()

	product := handler.ProductRequest{
		Name:      "AlertItem",
		Price:     50.0,
		Quantity:  5,
		Threshold: 3,
	}
	w := createProduct(r, product)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create product: %d", w.Code)
	}
	var created handler.ProductResponse
	json.NewDecoder(w.Body).Decode(&created)

	// Adjust to just above threshold (5 → 4) → no alert
	t.Run("No alert above threshold", func(t *testing.T) {
		adj := handler.QuantityAdjustmentRequest{Delta: -1}
		w := adjustProduct(r, created.Id, adj)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}

		// Use a generic map to decode response dynamically, allowing validation even when "low_stock" may be absent
		var resp map[string]any
		json.NewDecoder(w.Body).Decode(&resp)

		if resp["low_stock"] != nil {
			t.Error("expected no low_stock alert above threshold")
		}
	})

	// Adjust to below threshold (4 → 2) → should trigger alert
	t.Run("Alert triggered below threshold", func(t *testing.T) {
		adj := handler.QuantityAdjustmentRequest{Delta: -2}
		w := adjustProduct(r, created.Id, adj)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}

		var resp handler.ProductResponse
		json.NewDecoder(w.Body).Decode(&resp)

		if resp.LowStock != true {
			t.Error("expected low_stock alert to be true")
		}

		entries, _ := alertLog.Recent(context.Background(), 10)
		if len(entries) == 0 || entries[0].ProductID != created.Id || entries[0].Quantity != 2 {
			t.Errorf("expected low stock entry for %s at 2, got %+v", created.Id, entries)
		}
	})
}

func TestExportMovementsHandler(t *testing.T) {
	t.Cleanup(clearAllProducts)
	r := api.NewRouter()

	product := handler.ProductRequest{Name: "Exportable", Price: 100.0, Quantity: 5}
	w := createProduct(r, product)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create product")
	}
	var created handler.ProductResponse
	json.NewDecoder(w.Body).Decode(&created)

	adj := handler.QuantityAdjustmentRequest{Delta: 3}
	w2 := adjustProduct(r, created.Id, adj)
	if w2.Code != http.StatusOK {
		t.Fatalf("failed to adjust product")
	}

	t.Run("Export as JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s/movements/export?format=json", created.Id), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Errorf("expected application/json, got %s", ct)
		}
		if !strings.Contains(w.Body.String(), `"delta"`) {
			t.Errorf("expected JSON content with field 'delta', got: %s", w.Body.String())
		}
	})

	t.Run("Export as CSV", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s/movements/export?format=csv", created.Id), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
			t.Errorf("expected text/csv, got %s", ct)
		}
		if !strings.Contains(w.Body.String(), "product_id,delta") {
			t.Errorf("expected CSV header in response, got: %s", w.Body.String())
		}
	})

	t.Run("Invalid format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s/movements/export?format=pdf", created.Id), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 Bad Request, got %d", w.Code)
		}
	})

	t.Run("Unknown product ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/abc/movements/export?format=json", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 Not Found, got %d", w.Code)
		}
	})
}

func TestExportMovementsHandler_Filtered(t *testing.T) {
	t.Cleanup(clearAllProducts)
	r := api.NewRouter()

	product := handler.ProductRequest{Name: "FilteredExport", Price: 75.0, Quantity: 8}
	w := createProduct(r, product)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create product")
	}
	var created handler.ProductResponse
	json.NewDecoder(w.Body).Decode(&created)

	// Insert one old movement
	addMovement(models.Movement{
		ProductID: created.Id,
		Delta:     -1,
		Reason:    models.ReasonAdjust,
		CreatedAt: time.Now().Add(-72 * time.Hour).UTC(),
	})
	// Insert one recent movement via API
	adj := handler.QuantityAdjustmentRequest{Delta: 2}
	w2 := adjustProduct(r, created.Id, adj)
	if w2.Code != http.StatusOK {
		t.Fatalf("failed to add recent movement")
	}

	t.Run("Export recent only as JSON", func(t *testing.T) {
		since := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s/movements/export?format=json&since=%s", created.Id, since), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var items []handler.MovementResponse
		if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
			t.Fatalf("failed to decode json: %v", err)
		}
		if count := len(items); count != 2 {
			t.Errorf("expected 2 recent movements, got %d", count)
		}
	})

	t.Run("Export old only as CSV", func(t *testing.T) {
		until := time.Now().Add(-48 * time.Hour).Format(time.RFC3339)
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s/movements/export?format=csv&until=%s", created.Id, until), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := w.Body.String()
		lines := strings.Split(strings.TrimSpace(body), "\n")
		if count := len(lines); count-1 != 1 {
			t.Errorf("expected 1 CSV row of data, got %d rows (incl. header)", count-1)
		}
	})
}
