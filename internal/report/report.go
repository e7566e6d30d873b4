// Package report computes the sales and stock reports of the admin
// dashboard from stored transactions, products and movements.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type BestSeller struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Sold      int     `json:"sold"`
}

type StockLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
	LowStock  bool   `json:"low_stock"`
}

type Dashboard struct {
	TotalSales       float64     `json:"total_sales"`
	TotalRevenue     float64     `json:"total_revenue"`
	TransactionCount int         `json:"transaction_count"`
	ProductCount     int         `json:"product_count"`
	LowStockCount    int         `json:"low_stock_count"`
	TopProductCount  int         `json:"top_product_count"`
	MostMoved        *NamedValue `json:"most_moved,omitempty"`
	GeneratedAt      time.Time   `json:"generated_at"`
}

// TotalSales sums what customers actually paid.
func TotalSales(ts []models.Transaction) float64 {
	var sum float64
	for _, t := range ts {
		sum += t.AmountPaid
	}
	return models.RoundCents(sum)
}

// TotalRevenue sums transaction totals.
func TotalRevenue(ts []models.Transaction) float64 {
	var sum float64
	for _, t := range ts {
		sum += t.Total
	}
	return models.RoundCents(sum)
}

func MonthlySales(ts []models.Transaction, month time.Month, year int) float64 {
	var sum float64
	for _, t := range ts {
		if t.Date.Month() == month && t.Date.Year() == year {
			sum += t.Total
		}
	}
	return models.RoundCents(sum)
}

// TopProducts counts units sold per item name, most sold first.
func TopProducts(ts []models.Transaction) []NamedValue {
	counts := map[string]int{}
	for _, t := range ts {
		for _, it := range t.Items {
			name := it.Name
			if name == "" {
				name = "Unknown"
			}
			counts[name] += it.Quantity
		}
	}
	out := make([]NamedValue, 0, len(counts))
	for name, n := range counts {
		out = append(out, NamedValue{Name: name, Value: n})
	}
	sortDesc(out)
	return out
}

// BestSellers counts units sold per product still in inventory, reporting
// the current name and price. limit <= 0 returns every product.
func BestSellers(ts []models.Transaction, products []models.Product, limit int) []BestSeller {
	sold := map[string]int{}
	for _, t := range ts {
		for _, it := range t.Items {
			sold[it.ProductID] += it.Quantity
		}
	}
	out := []BestSeller{}
	for _, p := range products {
		if n, ok := sold[p.ID]; ok {
			out = append(out, BestSeller{ProductID: p.ID, Name: p.Name, Price: p.Price, Sold: n})
		}
	}
	slices.SortStableFunc(out, func(a, b BestSeller) int {
		if c := cmp.Compare(b.Sold, a.Sold); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func Stock(products []models.Product) []StockLine {
	out := make([]StockLine, 0, len(products))
	for _, p := range products {
		out = append(out, StockLine{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Quantity:  p.Quantity,
			Threshold: p.Threshold,
			LowStock:  p.LowStock(),
		})
	}
	return out
}

// MostMoved returns the product with the most stock movements, or nil.
func MostMoved(ms []models.Movement, products []models.Product) *NamedValue {
	counts := map[string]int{}
	for _, m := range ms {
		counts[m.ProductID]++
	}
	var best *NamedValue
	for _, p := range products {
		n := counts[p.ID]
		if n == 0 {
			continue
		}
		if best == nil || n > best.Value || (n == best.Value && p.Name < best.Name) {
			best = &NamedValue{Name: p.Name, Value: n}
		}
	}
	return best
}

func sortDesc(vs []NamedValue) {
	slices.SortFunc(vs, func(a, b NamedValue) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
