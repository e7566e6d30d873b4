package models

import "time"

// MovementReason classifies a change of a product's stock.
type MovementReason string

const (
	ReasonReserve MovementReason = "reserve"
	ReasonRelease MovementReason = "release"
	ReasonRestock MovementReason = "restock"
	ReasonAdjust  MovementReason = "adjust"
)

type Movement struct {
	ID        string         `json:"id"`
	ProductID string         `json:"product_id"`
	Delta     int            `json:"delta"`
	Reason    MovementReason `json:"reason"`
	ShopperID string         `json:"shopper_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
