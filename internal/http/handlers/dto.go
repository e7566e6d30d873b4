package handlers

import (
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
)

type ProductRequest struct {
	Id          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Threshold   int     `json:"threshold"`
	ImageURL    string  `json:"image_url,omitempty"`
}

type ProductResponse struct {
	Id          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Threshold   int     `json:"threshold"`
	ImageURL    string  `json:"image_url,omitempty"`
	LowStock    bool    `json:"low_stock,omitempty"`
}

func toProductResponse(p models.Product) ProductResponse {
	return ProductResponse{
		Id:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Threshold:   p.Threshold,
		ImageURL:    p.ImageURL,
		LowStock:    p.LowStock(),
	}
}

type Meta struct {
	TotalCount int `json:"total_count"`
}

type ProductsSearchResult struct {
	Data []ProductResponse `json:"data"`
	Meta Meta              `json:"meta,omitempty"`
}

type QuantityAdjustmentRequest struct {
	Delta  int    `json:"delta"` // can be positive or negative
	Reason string `json:"reason,omitempty"`
}

type MovementResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	ShopperID string `json:"shopper_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

type MovementsSearchResult struct {
	Data []MovementResponse `json:"data"`
	Meta Meta               `json:"meta,omitempty"`
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type RegisterAsAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
}

type LoginResult struct {
	Token string `json:"token"`
}

type RegisterResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type ProfileResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileResponse(u models.User) ProfileResponse {
	return ProfileResponse{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type ImportProductsResult struct {
	ImportedProductsCount int                      `json:"imported"`
	Errors                []ProductValidationError `json:"errors"`
}

type AddToCartRequest struct {
	ProductID string `json:"product_id"`
}

type SelectAllRequest struct {
	Selected bool `json:"selected"`
}

type DeleteLineResult struct {
	ProductID string `json:"product_id"`
	Restored  int    `json:"restored"`
}

type BulkDeleteResult struct {
	Outcomes []reconcile.LineOutcome `json:"outcomes"`
	Error    string                  `json:"error,omitempty"`
}

// CheckoutRequest lists the products to check out. An empty list checks
// out the lines currently selected in the cart.
type CheckoutRequest struct {
	ProductIDs []string `json:"product_ids"`
}

type PaymentRequest struct {
	Status     string  `json:"payment_status"`
	AmountPaid float64 `json:"amount_paid"`
	Method     string  `json:"payment_method,omitempty"`
}

type TransactionsResult struct {
	Data []models.Transaction `json:"data"`
	Meta Meta                 `json:"meta"`
}

type MonthlySalesResult struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
}
