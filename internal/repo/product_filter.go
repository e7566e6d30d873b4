package repo

import (
	"strings"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

type ProductFilter struct {
	Name     string
	Category string
	MinPrice *float64
	MaxPrice *float64
	MinQty   *int
	MaxQty   *int
	Offset   *int
	Limit    *int
}

func matchesFilter(p models.Product, pf ProductFilter) bool {
	if pf.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(pf.Name)) {
		return false
	}
	if pf.Category != "" && !strings.EqualFold(p.Category, pf.Category) {
		return false
	}
	if pf.MinPrice != nil && p.Price < *pf.MinPrice {
		return false
	}
	if pf.MaxPrice != nil && p.Price > *pf.MaxPrice {
		return false
	}
	if pf.MinQty != nil && p.Quantity < *pf.MinQty {
		return false
	}
	if pf.MaxQty != nil && p.Quantity > *pf.MaxQty {
		return false
	}
	return true
}

// filterProducts applies pf to an ordered product list, returning the page
// and the total number of matches.
func filterProducts(all []models.Product, pf ProductFilter) ([]models.Product, int) {
	filtered := []models.Product{}
	for _, p := range all {
		if matchesFilter(p, pf) {
			filtered = append(filtered, p)
		}
	}
	start, end := pageBounds(len(filtered), pf.Offset, pf.Limit)
	return filtered[start:end], len(filtered)
}

func pageBounds(n int, offset, limit *int) (int, int) {
	start := 0
	if offset != nil {
		start = clamp(*offset, 0, n)
	}
	end := n
	if limit != nil && *limit > 0 {
		end = clamp(start+*limit, start, n)
	}
	return start, end
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
