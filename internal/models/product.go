package models

import "time"

// Product represents a product entity in the inventory system.
// Quantity is the authoritative available stock and never drops below zero.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Threshold   int       `json:"threshold"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LowStock reports whether the available quantity is under the alert threshold.
func (p Product) LowStock() bool {
	return p.Quantity < p.Threshold
}
