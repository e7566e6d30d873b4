package models

import "time"

// CartLine is a shopper's reservation of Quantity units of one product.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Selected  bool   `json:"selected"`
}

// Cart holds the lines of exactly one shopper, unique by product.
type Cart struct {
	ShopperID string     `json:"shopper_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Line returns the line for productID, if any.
func (c Cart) Line(productID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// Put inserts or replaces the line for line.ProductID.
func (c *Cart) Put(line CartLine) {
	for i, l := range c.Lines {
		if l.ProductID == line.ProductID {
			c.Lines[i] = line
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// Remove drops the line for productID and reports whether it existed.
func (c *Cart) Remove(productID string) bool {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Selected returns the lines the shopper has checked.
func (c Cart) Selected() []CartLine {
	var out []CartLine
	for _, l := range c.Lines {
		if l.Selected {
			out = append(out, l)
		}
	}
	return out
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = append([]CartLine(nil), c.Lines...)
	return out
}
