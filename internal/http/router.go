package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/rogerio-castellano/shopnesty/docs"
	"github.com/rogerio-castellano/shopnesty/internal/http/handlers"
	mw "github.com/rogerio-castellano/shopnesty/internal/http/middleware"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mw.CORS())
	r.Use(mw.RequestLogger)
	r.Use(mw.RateLimit)

	r.Get("/healthz", handlers.HealthHandler)
	if reg := mw.Metrics(); reg != nil {
		r.Handle("/metrics", reg.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Post("/register", handlers.RegisterHandler)
	r.Post("/login", handlers.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)

		r.Get("/products", handlers.GetProductsHandler)
		r.Get("/products/search", handlers.FilterProductsHandler)
		r.Get("/products/{id}", handlers.GetProductByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(models.RoleCustomer))

			r.Get("/cart", handlers.GetCartHandler)
			r.Post("/cart/items", handlers.AddToCartHandler)
			r.Post("/cart/items/{productID}/increment", handlers.IncrementLineHandler)
			r.Post("/cart/items/{productID}/decrement", handlers.DecrementLineHandler)
			r.Post("/cart/items/{productID}/toggle", handlers.ToggleSelectionHandler)
			r.Delete("/cart/items/{productID}", handlers.DeleteLineHandler)
			r.Post("/cart/select-all", handlers.SelectAllHandler)
			r.Post("/cart/bulk-delete", handlers.BulkDeleteHandler)
			r.Post("/cart/checkout", handlers.CheckoutHandler)
			r.Get("/me", handlers.GetProfileHandler)
			r.Patch("/me", handlers.UpdateProfileHandler)
			r.Get("/me/transactions", handlers.GetMyTransactionsHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(models.RoleAdmin))

			r.Post("/admin/users", handlers.RegisterAsAdminHandler)

			r.Post("/products", handlers.CreateProductHandler)
			r.Post("/products/import", handlers.ImportProductsHandler)
			r.Put("/products/{id}", handlers.UpdateProductHandler)
			r.Delete("/products/{id}", handlers.DeleteProductHandler)
			r.Post("/products/{id}/adjust", handlers.AdjustQuantityHandler)
			r.Get("/products/{id}/movements", handlers.GetMovementsHandler)
			r.Get("/products/{id}/movements/export", handlers.ExportMovementsHandler)

			r.Get("/transactions", handlers.GetTransactionsHandler)
			r.Get("/transactions/{id}", handlers.GetTransactionByIDHandler)
			r.Patch("/transactions/{id}/payment", handlers.UpdatePaymentHandler)

			r.Get("/reports/dashboard", handlers.DashboardHandler)
			r.Get("/reports/best-sellers", handlers.BestSellersHandler)
			r.Get("/reports/monthly-sales", handlers.MonthlySalesHandler)
			r.Get("/reports/stock", handlers.StockReportHandler)
			r.Get("/reports/export", handlers.ExportReportsHandler)

			r.Get("/alerts/low-stock", handlers.LowStockAlertsHandler)
		})
	})
	return r
}
