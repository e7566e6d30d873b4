package repo

import (
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

// Collection names match the documents the mobile app already writes.
const (
	colInventory    = "inventory"
	colCarts        = "carts"
	colTransactions = "transactions"
	colMovements    = "movements"
	colUsers        = "users"
)

type fsProduct struct {
	Name              string    `firestore:"name"`
	Description       string    `firestore:"description"`
	Category          string    `firestore:"category"`
	Price             float64   `firestore:"price"`
	Quantity          int       `firestore:"quantity"`
	LowStockThreshold int       `firestore:"lowStockThreshold"`
	ImageURL          string    `firestore:"imageUrl"`
	CreatedAt         time.Time `firestore:"createdAt"`
	LastUpdated       time.Time `firestore:"lastUpdated"`
}

func toFSProduct(p models.Product) fsProduct {
	return fsProduct{
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Price:             p.Price,
		Quantity:          p.Quantity,
		LowStockThreshold: p.Threshold,
		ImageURL:          p.ImageURL,
		CreatedAt:         p.CreatedAt,
		LastUpdated:       p.UpdatedAt,
	}
}

func (d fsProduct) model(id string) models.Product {
	return models.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Price:       d.Price,
		Quantity:    d.Quantity,
		Threshold:   d.LowStockThreshold,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.LastUpdated,
	}
}

type fsCartLine struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
	Selected  bool   `firestore:"selected"`
}

type fsCart struct {
	Products  []fsCartLine `firestore:"products"`
	UpdatedAt time.Time    `firestore:"updatedAt"`
}

func toFSCart(c models.Cart) fsCart {
	lines := make([]fsCartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, fsCartLine{ProductID: l.ProductID, Quantity: l.Quantity, Selected: l.Selected})
	}
	return fsCart{Products: lines, UpdatedAt: c.UpdatedAt}
}

func (d fsCart) model(shopperID string) models.Cart {
	c := models.Cart{ShopperID: shopperID, UpdatedAt: d.UpdatedAt}
	for _, l := range d.Products {
		c.Lines = append(c.Lines, models.CartLine{ProductID: l.ProductID, Quantity: l.Quantity, Selected: l.Selected})
	}
	return c
}

type fsItem struct {
	ProductID         string  `firestore:"productId"`
	Name              string  `firestore:"name"`
	PriceAtTimeOfSale float64 `firestore:"priceAtTimeOfSale"`
	Quantity          int     `firestore:"quantity"`
	Total             float64 `firestore:"total"`
}

type fsTransaction struct {
	ReceiptNumber string    `firestore:"receiptNumber"`
	UserID        string    `firestore:"userId"`
	CustomerName  string    `firestore:"customerName"`
	Date          time.Time `firestore:"date"`
	DueDate       time.Time `firestore:"dueDate"`
	Items         []fsItem  `firestore:"items"`
	Subtotal      float64   `firestore:"subtotal"`
	Tax           float64   `firestore:"tax"`
	Total         float64   `firestore:"total"`
	PaymentStatus string    `firestore:"paymentStatus"`
	PaymentMethod string    `firestore:"paymentMethod"`
	AmountPaid    float64   `firestore:"amountPaid"`
	Change        float64   `firestore:"change"`
	Notes         string    `firestore:"notes"`
}

func toFSTransaction(t models.Transaction) fsTransaction {
	items := make([]fsItem, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, fsItem(it))
	}
	return fsTransaction{
		ReceiptNumber: t.ReceiptNumber,
		UserID:        t.ShopperID,
		CustomerName:  t.CustomerName,
		Date:          t.Date,
		DueDate:       t.DueDate,
		Items:         items,
		Subtotal:      t.Subtotal,
		Tax:           t.Tax,
		Total:         t.Total,
		PaymentStatus: string(t.PaymentStatus),
		PaymentMethod: string(t.PaymentMethod),
		AmountPaid:    t.AmountPaid,
		Change:        t.Change,
		Notes:         t.Notes,
	}
}

func (d fsTransaction) model(id string) models.Transaction {
	items := make([]models.TransactionItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, models.TransactionItem(it))
	}
	return models.Transaction{
		ID:            id,
		ReceiptNumber: d.ReceiptNumber,
		ShopperID:     d.UserID,
		CustomerName:  d.CustomerName,
		Date:          d.Date,
		DueDate:       d.DueDate,
		Items:         items,
		Subtotal:      d.Subtotal,
		Tax:           d.Tax,
		Total:         d.Total,
		PaymentStatus: models.PaymentStatus(d.PaymentStatus),
		PaymentMethod: models.PaymentMethod(d.PaymentMethod),
		AmountPaid:    d.AmountPaid,
		Change:        d.Change,
		Notes:         d.Notes,
	}
}

type fsMovement struct {
	ProductID string    `firestore:"productId"`
	Delta     int       `firestore:"delta"`
	Reason    string    `firestore:"reason"`
	UserID    string    `firestore:"userId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (d fsMovement) model(id string) models.Movement {
	return models.Movement{
		ID:        id,
		ProductID: d.ProductID,
		Delta:     d.Delta,
		Reason:    models.MovementReason(d.Reason),
		ShopperID: d.UserID,
		CreatedAt: d.CreatedAt,
	}
}

type fsUser struct {
	Username     string    `firestore:"username"`
	Name         string    `firestore:"name"`
	PasswordHash string    `firestore:"passwordHash"`
	Role         string    `firestore:"role"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func (d fsUser) model(id string) models.User {
	return models.User{
		ID:           id,
		Username:     d.Username,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
