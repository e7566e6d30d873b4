package reconcile

import (
	"context"
	"errors"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
)

// LineView is a cart line joined with the current state of its product.
type LineView struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url,omitempty"`
	Quantity  int     `json:"quantity"`
	Selected  bool    `json:"selected"`
	LineTotal float64 `json:"line_total"`
	Available int     `json:"available"`
	InStock   bool    `json:"in_stock"`
	Missing   bool    `json:"missing,omitempty"`
}

type CartView struct {
	ShopperID     string     `json:"shopper_id"`
	Lines         []LineView `json:"lines"`
	SelectedTotal float64    `json:"selected_total"`
	ItemCount     int        `json:"item_count"`
}

// Cart reads the shopper's cart together with live product data.
func (e *Engine) Cart(ctx context.Context, shopperID string) (CartView, error) {
	if err := requireIDs(shopperID); err != nil {
		return CartView{}, err
	}

	var view CartView
	err := e.view(ctx, opViewCart, func(ctx context.Context, tx repo.Tx) error {
		view = CartView{ShopperID: shopperID, Lines: []LineView{}}
		cart, err := tx.GetCart(ctx, shopperID)
		if err != nil {
			return err
		}
		var selectedTotal float64
		for _, l := range cart.Lines {
			lv := LineView{ProductID: l.ProductID, Quantity: l.Quantity, Selected: l.Selected}
			p, err := tx.GetProduct(ctx, l.ProductID)
			switch {
			case errors.Is(err, repo.ErrProductNotFound):
				lv.Missing = true
			case err != nil:
				return err
			default:
				lv.Name = p.Name
				lv.Price = p.Price
				lv.ImageURL = p.ImageURL
				lv.Available = p.Quantity
				lv.InStock = p.Quantity > 0
				lv.LineTotal = models.RoundCents(p.Price * float64(l.Quantity))
				if l.Selected {
					selectedTotal += lv.LineTotal
				}
			}
			view.ItemCount += l.Quantity
			view.Lines = append(view.Lines, lv)
		}
		view.SelectedTotal = models.RoundCents(selectedTotal)
		return nil
	})
	return view, err
}
