package models

import (
	"fmt"
	"math"
	"time"
)

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "Pending"
	PaymentPaid          PaymentStatus = "Paid"
	PaymentPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentUnpaid        PaymentStatus = "Unpaid"
)

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "Cash"
	PaymentDigitalWallet PaymentMethod = "Digital Wallet"
)

// ParsePaymentStatus validates a payment status string.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentPaid, PaymentPartiallyPaid, PaymentUnpaid:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// ParsePaymentMethod validates a payment method string. Empty is allowed.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case "", PaymentCash, PaymentDigitalWallet:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// TransactionItem is a price snapshot of one checked-out cart line.
type TransactionItem struct {
	ProductID         string  `json:"product_id"`
	Name              string  `json:"name"`
	PriceAtTimeOfSale float64 `json:"price_at_time_of_sale"`
	Quantity          int     `json:"quantity"`
	Total             float64 `json:"total"`
}

// Transaction is the immutable record of a completed checkout. Only the
// payment fields change after creation.
type Transaction struct {
	ID            string            `json:"id"`
	ReceiptNumber string            `json:"receipt_number"`
	ShopperID     string            `json:"shopper_id"`
	CustomerName  string            `json:"customer_name"`
	Date          time.Time         `json:"date"`
	DueDate       time.Time         `json:"due_date"`
	Items         []TransactionItem `json:"items"`
	Subtotal      float64           `json:"subtotal"`
	Tax           float64           `json:"tax"`
	Total         float64           `json:"total"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	PaymentMethod PaymentMethod     `json:"payment_method,omitempty"`
	AmountPaid    float64           `json:"amount_paid"`
	Change        float64           `json:"change"`
	Notes         string            `json:"notes,omitempty"`
}

// Payment is an administrative update of a transaction's payment state.
type Payment struct {
	Status     PaymentStatus
	AmountPaid float64
	Method     PaymentMethod
}

// ApplyPayment records p on the transaction, computing the change owed
// when more than the total was paid.
func (t *Transaction) ApplyPayment(p Payment) {
	t.PaymentStatus = p.Status
	t.AmountPaid = p.AmountPaid
	t.PaymentMethod = p.Method
	t.Change = 0
	if p.AmountPaid > t.Total {
		t.Change = RoundCents(p.AmountPaid - t.Total)
	}
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
