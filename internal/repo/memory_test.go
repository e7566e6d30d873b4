package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

func seedProduct(t *testing.T, db *InMemoryDB, name string, qty int) models.Product {
	t.Helper()
	p, err := NewInMemoryProductRepository(db).Create(context.Background(), models.Product{Name: name, Price: 10, Quantity: qty})
	if err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return p
}

func TestInMemoryWithinTx_CommitsOnSuccess(t *testing.T) {
	db := NewInMemoryDB()
	p := seedProduct(t, db, "Soap", 3)
	ctx := context.Background()

	err := db.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.SetProductQuantity(ctx, p.ID, 2); err != nil {
			return err
		}
		return tx.PutLine(ctx, "u1", models.CartLine{ProductID: p.ID, Quantity: 1})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := NewInMemoryProductRepository(db).GetByID(ctx, p.ID)
	if got.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", got.Quantity)
	}
	_ = db.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		c, _ := tx.GetCart(ctx, "u1")
		if l, ok := c.Line(p.ID); !ok || l.Quantity != 1 {
			t.Errorf("expected cart line with quantity 1, got %+v", c.Lines)
		}
		return nil
	})
}

func TestInMemoryWithinTx_RollsBackOnError(t *testing.T) {
	db := NewInMemoryDB()
	p := seedProduct(t, db, "Soap", 3)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		_ = tx.SetProductQuantity(ctx, p.ID, 0)
		_ = tx.PutLine(ctx, "u1", models.CartLine{ProductID: p.ID, Quantity: 3})
		_ = tx.LogMovement(ctx, models.Movement{ProductID: p.ID, Delta: -3})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := NewInMemoryProductRepository(db).GetByID(ctx, p.ID)
	if got.Quantity != 3 {
		t.Errorf("expected quantity to stay 3, got %d", got.Quantity)
	}
	all, _ := NewInMemoryMovementRepository(db).All(ctx)
	if len(all) != 0 {
		t.Errorf("expected no movements, got %d", len(all))
	}
	_ = db.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		c, _ := tx.GetCart(ctx, "u1")
		if len(c.Lines) != 0 {
			t.Errorf("expected empty cart, got %+v", c.Lines)
		}
		return nil
	})
}

func TestInMemoryWithinTx_CanceledContext(t *testing.T) {
	db := NewInMemoryDB()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := db.WithinTx(ctx, func(context.Context, Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn should not run on a canceled context")
	}
}

func TestInMemoryTx_Guards(t *testing.T) {
	db := NewInMemoryDB()
	p := seedProduct(t, db, "Soap", 1)
	ctx := context.Background()

	_ = db.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.SetProductQuantity(ctx, p.ID, -1); !errors.Is(err, ErrInvalidQuantityChange) {
			t.Errorf("expected ErrInvalidQuantityChange, got %v", err)
		}
		if err := tx.SetProductQuantity(ctx, "missing", 1); !errors.Is(err, ErrProductNotFound) {
			t.Errorf("expected ErrProductNotFound, got %v", err)
		}
		if err := tx.PutLine(ctx, "u1", models.CartLine{ProductID: p.ID}); !errors.Is(err, ErrInvalidQuantityChange) {
			t.Errorf("expected ErrInvalidQuantityChange for empty line, got %v", err)
		}
		if _, err := tx.GetUser(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if err := tx.RemoveLine(ctx, "u-none", p.ID); err != nil {
			t.Errorf("removing from a missing cart should be a no-op, got %v", err)
		}
		return nil
	})
}

func TestInMemoryTx_GetCartReturnsCopy(t *testing.T) {
	db := NewInMemoryDB()
	p := seedProduct(t, db, "Soap", 1)
	ctx := context.Background()

	_ = db.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		_ = tx.PutLine(ctx, "u1", models.CartLine{ProductID: p.ID, Quantity: 1})
		c, _ := tx.GetCart(ctx, "u1")
		c.Lines[0].Quantity = 99
		again, _ := tx.GetCart(ctx, "u1")
		if again.Lines[0].Quantity != 1 {
			t.Errorf("cart mutated through returned copy: %+v", again.Lines)
		}
		return nil
	})
}

func TestInMemoryProductRepository_CRUD(t *testing.T) {
	db := NewInMemoryDB()
	r := NewInMemoryProductRepository(db)
	ctx := context.Background()

	p, err := r.Create(ctx, models.Product{Name: "Rice", Price: 2.5, Quantity: 10, Threshold: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := r.Create(ctx, models.Product{Name: "Rice", Price: 1}); !errors.Is(err, ErrDuplicatedValueUnique) {
		t.Errorf("expected ErrDuplicatedValueUnique, got %v", err)
	}

	p.Price = 3
	p.Quantity = 500
	updated, err := r.Update(ctx, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 3 {
		t.Errorf("expected price 3, got %v", updated.Price)
	}
	if updated.Quantity != 10 {
		t.Errorf("update must not change quantity, got %d", updated.Quantity)
	}

	byName, err := r.GetByName(ctx, "Rice")
	if err != nil || byName.ID != p.ID {
		t.Errorf("GetByName: got %+v, %v", byName, err)
	}

	if err := r.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.GetByID(ctx, p.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound after delete, got %v", err)
	}
	if err := r.Delete(ctx, p.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound on second delete, got %v", err)
	}
}

func TestInMemoryProductRepository_Filter(t *testing.T) {
	db := NewInMemoryDB()
	r := NewInMemoryProductRepository(db)
	ctx := context.Background()
	for _, p := range []models.Product{
		{Name: "Green Apple", Category: "fruit", Price: 1, Quantity: 5},
		{Name: "Red Apple", Category: "fruit", Price: 2, Quantity: 0},
		{Name: "Bread", Category: "bakery", Price: 3, Quantity: 8},
	} {
		if _, err := r.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	minQty, limit, offset := 1, 1, 0
	tests := []struct {
		name      string
		filter    ProductFilter
		wantTotal int
		wantFirst string
	}{
		{"by name", ProductFilter{Name: "apple"}, 2, "Green Apple"},
		{"by category", ProductFilter{Category: "BAKERY"}, 1, "Bread"},
		{"in stock", ProductFilter{MinQty: &minQty}, 2, "Green Apple"},
		{"paged", ProductFilter{Offset: &offset, Limit: &limit}, 3, "Green Apple"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, total, err := r.Filter(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, total)
			}
			if len(page) == 0 || page[0].Name != tt.wantFirst {
				t.Errorf("expected first %q, got %+v", tt.wantFirst, page)
			}
		})
	}
}

func TestInMemoryMovementRepository_GetByProductID(t *testing.T) {
	db := NewInMemoryDB()
	r := NewInMemoryMovementRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r.AddMovement(models.Movement{ProductID: "p1", Delta: i + 1, Reason: models.ReasonRestock, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	r.AddMovement(models.Movement{ProductID: "p2", Delta: 1, CreatedAt: base})

	all, total, err := r.GetByProductID(ctx, "p1", MovementFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(all) != 5 {
		t.Fatalf("expected 5 movements, got %d/%d", len(all), total)
	}
	if all[0].Delta != 5 {
		t.Errorf("expected newest first, got delta %d", all[0].Delta)
	}

	since := base.Add(2 * time.Hour)
	ranged, total, _ := r.GetByProductID(ctx, "p1", MovementFilter{Since: &since})
	if total != 3 || len(ranged) != 3 {
		t.Errorf("expected 3 movements since %v, got %d", since, total)
	}

	zero := 0
	countOnly, total, _ := r.GetByProductID(ctx, "p1", MovementFilter{Limit: &zero})
	if len(countOnly) != 0 || total != 5 {
		t.Errorf("expected count-only result, got %d items, total %d", len(countOnly), total)
	}
}

func TestInMemoryTransactionRepository(t *testing.T) {
	db := NewInMemoryDB()
	r := NewInMemoryTransactionRepository(db)
	ctx := context.Background()
	day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Add(models.Transaction{ID: "t1", ShopperID: "u1", Date: day, Total: 10})
	r.Add(models.Transaction{ID: "t2", ShopperID: "u2", Date: day.Add(time.Hour), Total: 20})

	list, _ := r.List(ctx, TransactionFilter{})
	if len(list) != 2 || list[0].ID != "t2" {
		t.Errorf("expected newest first, got %+v", list)
	}
	mine, _ := r.List(ctx, TransactionFilter{ShopperID: "u1"})
	if len(mine) != 1 || mine[0].ID != "t1" {
		t.Errorf("expected only t1, got %+v", mine)
	}

	updated, err := r.UpdatePayment(ctx, "t1", models.Payment{Status: models.PaymentPaid, AmountPaid: 15, Method: models.PaymentCash})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Change != 5 {
		t.Errorf("expected change 5, got %v", updated.Change)
	}
	if _, err := r.UpdatePayment(ctx, "nope", models.Payment{}); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestInMemoryUserRepository(t *testing.T) {
	db := NewInMemoryDB()
	r := NewInMemoryUserRepository(db)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, models.User{Username: "ana", Name: "Ana"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != models.RoleCustomer {
		t.Errorf("expected default role customer, got %q", u.Role)
	}
	if _, err := r.CreateUser(ctx, models.User{Username: "ana"}); !errors.Is(err, ErrDuplicatedValueUnique) {
		t.Errorf("expected ErrDuplicatedValueUnique, got %v", err)
	}
	if _, err := r.GetByUsername(ctx, "bob"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	if _, err := r.UpdateName(ctx, "missing", "X"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if renamed, err := r.UpdateName(ctx, u.ID, "Ana Souza"); err != nil || renamed.Name != "Ana Souza" {
		t.Fatalf("UpdateName: %+v, %v", renamed, err)
	}

	_ = db.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		got, err := tx.GetUser(ctx, u.ID)
		if err != nil || got.Name != "Ana Souza" {
			t.Errorf("GetUser inside tx: %+v, %v", got, err)
		}
		return nil
	})
}

func TestInMemoryDB_WithinReadTxDiscardsWrites(t *testing.T) {
	db := NewInMemoryDB()
	products := NewInMemoryProductRepository(db)
	ctx := context.Background()
	p, err := products.Create(ctx, models.Product{Name: "Pen", Price: 1, Quantity: 4})
	if err != nil {
		t.Fatal(err)
	}

	err = db.WithinReadTx(ctx, func(ctx context.Context, tx Tx) error {
		got, err := tx.GetProduct(ctx, p.ID)
		if err != nil || got.Quantity != 4 {
			t.Errorf("GetProduct inside read tx: %+v, %v", got, err)
		}
		return tx.SetProductQuantity(ctx, p.ID, 0)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := products.GetByID(ctx, p.ID); got.Quantity != 4 {
		t.Errorf("expected read tx writes to be discarded, got quantity %d", got.Quantity)
	}
}
