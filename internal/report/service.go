package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
)

type Service struct {
	products     repo.ProductRepository
	transactions repo.TransactionRepository
	movements    repo.MovementRepository
	now          func() time.Time
}

func NewService(p repo.ProductRepository, t repo.TransactionRepository, m repo.MovementRepository) *Service {
	return &Service{products: p, transactions: t, movements: m, now: time.Now}
}

func (s *Service) load(ctx context.Context) ([]models.Transaction, []models.Product, error) {
	ts, err := s.transactions.List(ctx, repo.TransactionFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	ps, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list products: %w", err)
	}
	return ts, ps, nil
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	ts, ps, err := s.load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	ms, err := s.movements.All(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list movements: %w", err)
	}

	low := 0
	for _, p := range ps {
		if p.LowStock() {
			low++
		}
	}
	return Dashboard{
		TotalSales:       TotalSales(ts),
		TotalRevenue:     TotalRevenue(ts),
		TransactionCount: len(ts),
		ProductCount:     len(ps),
		LowStockCount:    low,
		TopProductCount:  len(TopProducts(ts)),
		MostMoved:        MostMoved(ms, ps),
		GeneratedAt:      s.now(),
	}, nil
}

func (s *Service) BestSellers(ctx context.Context, limit int) ([]BestSeller, error) {
	ts, ps, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return BestSellers(ts, ps, limit), nil
}

func (s *Service) MonthlySales(ctx context.Context, month time.Month, year int) (float64, error) {
	ts, err := s.transactions.List(ctx, repo.TransactionFilter{})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	return MonthlySales(ts, month, year), nil
}

func (s *Service) Stock(ctx context.Context) ([]StockLine, error) {
	ps, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return Stock(ps), nil
}

// ExportCSV writes the revenue, stock and top product reports as one CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	ts, ps, err := s.load(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Report", "Name", "Value", "Subtitle"})
	for _, t := range ts {
		names := make([]string, 0, len(t.Items))
		for _, it := range t.Items {
			names = append(names, it.Name)
		}
		_ = cw.Write([]string{"Revenue", t.ID, formatAmount(t.AmountPaid), "Items: " + strings.Join(names, ", ")})
	}
	for _, p := range ps {
		_ = cw.Write([]string{"Stock Movement", p.Name, strconv.Itoa(p.Quantity), p.Category})
	}
	for _, tp := range TopProducts(ts) {
		_ = cw.Write([]string{"Top Products", tp.Name, strconv.Itoa(tp.Value), ""})
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
