package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
)

const featurePath = "../../features/reconciliation.feature"

type cartTestContext struct {
	db       *repo.InMemoryDB
	products *repo.InMemoryProductRepository
	engine   *reconcile.Engine
	byName   map[string]string
	shoppers map[string]bool
	initial  map[string]int
	result   reconcile.CheckoutResult
	err      error
}

func (c *cartTestContext) reset() {
	c.db = repo.NewInMemoryDB()
	c.products = repo.NewInMemoryProductRepository(c.db)
	c.engine = reconcile.New(c.db)
	c.byName = map[string]string{}
	c.shoppers = map[string]bool{}
	c.initial = map[string]int{}
	c.result = reconcile.CheckoutResult{}
	c.err = nil
}

func (c *cartTestContext) id(name string) string {
	if id, ok := c.byName[name]; ok {
		return id
	}
	return "missing-" + name
}

func (c *cartTestContext) anEmptyStore() error {
	return nil
}

func (c *cartTestContext) aProductPricedWithInStock(name string, price float64, qty int) error {
	p, err := c.products.Create(context.Background(), models.Product{Name: name, Price: price, Quantity: qty})
	if err != nil {
		return err
	}
	c.byName[name] = p.ID
	c.initial[name] = qty
	return nil
}

func (c *cartTestContext) shopperHasOfInTheCart(shopper string, qty int, name string) error {
	c.shoppers[shopper] = true
	for i := 0; i < qty; i++ {
		if _, err := c.engine.AddToCart(context.Background(), shopper, c.id(name)); err != nil {
			return fmt.Errorf("reserve unit %d of %s: %w", i+1, name, err)
		}
	}
	return nil
}

func (c *cartTestContext) shopperAddsToTheCart(shopper, name string) error {
	c.shoppers[shopper] = true
	_, c.err = c.engine.AddToCart(context.Background(), shopper, c.id(name))
	return nil
}

func (c *cartTestContext) shopperIncrements(shopper, name string) error {
	_, c.err = c.engine.ChangeQuantity(context.Background(), shopper, c.id(name), reconcile.Increment)
	return nil
}

func (c *cartTestContext) shopperDecrements(shopper, name string) error {
	_, c.err = c.engine.ChangeQuantity(context.Background(), shopper, c.id(name), reconcile.Decrement)
	return nil
}

func (c *cartTestContext) shopperDeletesTheLineFor(shopper, name string) error {
	_, c.err = c.engine.DeleteLine(context.Background(), shopper, c.id(name))
	return nil
}

func (c *cartTestContext) shopperChecksOut(shopper, name string) error {
	c.result, c.err = c.engine.Checkout(context.Background(), shopper, []string{c.id(name)})
	return nil
}

func (c *cartTestContext) shopperChecksOutNothing(shopper string) error {
	c.result, c.err = c.engine.Checkout(context.Background(), shopper, nil)
	return nil
}

func (c *cartTestContext) theOperationSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %v", c.err)
	}
	return nil
}

func (c *cartTestContext) theOperationFailsWith(message string) error {
	if c.err == nil {
		return errors.New("expected the operation to fail but it succeeded")
	}
	if got := reconcile.Message(c.err); got != message {
		return fmt.Errorf("expected %q, got %q (%v)", message, got, c.err)
	}
	return nil
}

func (c *cartTestContext) hasInStock(name string, qty int) error {
	p, err := c.products.GetByID(context.Background(), c.id(name))
	if err != nil {
		return err
	}
	if p.Quantity != qty {
		return fmt.Errorf("expected %s stock %d, got %d", name, qty, p.Quantity)
	}
	return nil
}

func (c *cartTestContext) lineQuantity(shopper, name string) (int, error) {
	view, err := c.engine.Cart(context.Background(), shopper)
	if err != nil {
		return 0, err
	}
	for _, l := range view.Lines {
		if l.ProductID == c.id(name) {
			return l.Quantity, nil
		}
	}
	return 0, nil
}

func (c *cartTestContext) shopperHasNoLineFor(shopper, name string) error {
	qty, err := c.lineQuantity(shopper, name)
	if err != nil {
		return err
	}
	if qty != 0 {
		return fmt.Errorf("expected no line for %s, found quantity %d", name, qty)
	}
	return nil
}

func (c *cartTestContext) shopperHoldsOf(shopper string, qty int, name string) error {
	got, err := c.lineQuantity(shopper, name)
	if err != nil {
		return err
	}
	if got != qty {
		return fmt.Errorf("expected %d of %s in %s's cart, got %d", qty, name, shopper, got)
	}
	return nil
}

func (c *cartTestContext) stockPlusReservationsEquals(name string, total int) error {
	p, err := c.products.GetByID(context.Background(), c.id(name))
	if err != nil {
		return err
	}
	sum := p.Quantity
	for shopper := range c.shoppers {
		qty, err := c.lineQuantity(shopper, name)
		if err != nil {
			return err
		}
		sum += qty
	}
	if sum != total {
		return fmt.Errorf("expected stock plus reservations %d, got %d", total, sum)
	}
	return nil
}

func (c *cartTestContext) theTransactionHasItem(n int) error {
	if got := len(c.result.Transaction.Items); got != n {
		return fmt.Errorf("expected %d items, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theTransactionItemFor(name string, qty int, price, total float64) error {
	for _, it := range c.result.Transaction.Items {
		if it.ProductID != c.id(name) {
			continue
		}
		if it.Quantity != qty || it.PriceAtTimeOfSale != price || it.Total != total {
			return fmt.Errorf("unexpected item %+v", it)
		}
		return nil
	}
	return fmt.Errorf("no item for %s", name)
}

func (c *cartTestContext) theTransactionTotalIs(total float64) error {
	if c.result.Transaction.Total != total {
		return fmt.Errorf("expected total %.2f, got %.2f", total, c.result.Transaction.Total)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty store$`, tc.anEmptyStore)
	ctx.Step(`^a product "([^"]*)" priced (\d+\.\d+) with (\d+) in stock$`, tc.aProductPricedWithInStock)
	ctx.Step(`^shopper "([^"]*)" has (\d+) of "([^"]*)" in the cart$`, tc.shopperHasOfInTheCart)

	// When steps
	ctx.Step(`^shopper "([^"]*)" adds "([^"]*)" to the cart$`, tc.shopperAddsToTheCart)
	ctx.Step(`^shopper "([^"]*)" increments "([^"]*)"$`, tc.shopperIncrements)
	ctx.Step(`^shopper "([^"]*)" decrements "([^"]*)"$`, tc.shopperDecrements)
	ctx.Step(`^shopper "([^"]*)" deletes the line for "([^"]*)"$`, tc.shopperDeletesTheLineFor)
	ctx.Step(`^shopper "([^"]*)" checks out "([^"]*)"$`, tc.shopperChecksOut)
	ctx.Step(`^shopper "([^"]*)" checks out nothing$`, tc.shopperChecksOutNothing)

	// Then steps
	ctx.Step(`^the operation succeeds$`, tc.theOperationSucceeds)
	ctx.Step(`^the operation fails with "([^"]*)"$`, tc.theOperationFailsWith)
	ctx.Step(`^"([^"]*)" has (\d+) in stock$`, tc.hasInStock)
	ctx.Step(`^shopper "([^"]*)" has no line for "([^"]*)"$`, tc.shopperHasNoLineFor)
	ctx.Step(`^shopper "([^"]*)" holds (\d+) of "([^"]*)"$`, tc.shopperHoldsOf)
	ctx.Step(`^"([^"]*)" stock plus reservations equals (\d+)$`, tc.stockPlusReservationsEquals)
	ctx.Step(`^the transaction has (\d+) items?$`, tc.theTransactionHasItem)
	ctx.Step(`^the transaction item for "([^"]*)" has quantity (\d+), price (\d+\.\d+) and total (\d+\.\d+)$`, tc.theTransactionItemFor)
	ctx.Step(`^the transaction total is (\d+\.\d+)$`, tc.theTransactionTotalIs)
}

func TestFeatures(t *testing.T) {
	if _, err := os.Stat(featurePath); os.IsNotExist(err) {
		t.Skipf("feature file %s not found", featurePath)
	}
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{featurePath},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
