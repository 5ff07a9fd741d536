// Package server wires handlers, services and middleware into the HTTP API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"pedidos-app/internal/handlers"
	"pedidos-app/internal/httpx"
	"pedidos-app/internal/middleware"
	"pedidos-app/internal/services"
)

// NewRouter builds the full route tree. Middleware order matters: recover
// wraps everything, request ids are minted before logging.
func NewRouter(db *gorm.DB, logger zerolog.Logger, allowOrigins []string) http.Handler {
	pricing := services.NewPricingService(db)
	settlement := services.NewSettlementService(db)
	conversion := services.NewConversionService(db, logger)
	kpis := services.NewKPIService(db)

	products := handlers.NewProductHandler(db)
	categories := handlers.NewCategoryHandler(db)
	customers := handlers.NewCustomerHandler(db, settlement)
	sellers := handlers.NewSellerHandler(db)
	orders := handlers.NewOrderHandler(db, pricing, settlement)
	purchases := handlers.NewPurchaseHandler(db, conversion)
	payments := handlers.NewPaymentHandler(db)
	offers := handlers.NewOfferHandler(db)
	kpiHandler := handlers.NewKPIHandler(kpis)

	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(allowOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Post("/", products.Create)
			r.Get("/suggest", products.Suggest)
			r.Get("/{id}", products.Get)
			r.Put("/{id}", products.Update)
			r.Delete("/{id}", products.Delete)
			r.Get("/{id}/price-history", products.PriceHistory)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.List)
			r.Post("/", categories.Create)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", customers.List)
			r.Post("/", customers.Create)
			r.Get("/{id}", customers.Get)
			r.Put("/{id}", customers.Update)
			r.Delete("/{id}", customers.Delete)
			r.Get("/{id}/debt", customers.Debt)
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Get("/", sellers.List)
			r.Post("/", sellers.Create)
			r.Get("/{id}", sellers.Get)
			r.Put("/{id}", sellers.Update)
			r.Delete("/{id}", sellers.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.List)
			r.Post("/", orders.Create)
			r.Post("/parse", orders.Parse)
			r.Get("/{id}", orders.Get)
			r.Delete("/{id}", orders.Delete)
			r.Post("/{id}/emit", orders.Emit)
			r.Post("/{id}/complete", orders.Complete)
			r.Post("/{id}/items", orders.AddItem)
			r.Put("/{id}/items/{itemID}", orders.UpdateItem)
			r.Delete("/{id}/items/{itemID}", orders.DeleteItem)
			r.Post("/{id}/expenses", orders.AddExpense)
			r.Delete("/{id}/expenses/{expenseID}", orders.DeleteExpense)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", purchases.List)
			r.Post("/", purchases.Create)
			r.Get("/{id}", purchases.Get)
			r.Delete("/{id}", purchases.Delete)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", payments.List)
			r.Post("/", payments.Create)
			r.Get("/{id}", payments.Get)
			r.Delete("/{id}", payments.Delete)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", offers.List)
			r.Post("/", offers.Create)
			r.Put("/{id}", offers.Update)
			r.Delete("/{id}", offers.Delete)
		})

		r.Get("/kpis", kpiHandler.Get)
	})

	return r
}
