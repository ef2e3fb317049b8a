package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/posline-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware кассового сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/employee/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/employee/logout", h.Logout)
			r.Get("/employee/me", h.GetMe)
			r.Post("/employee/password", h.ChangePassword)

			r.Get("/products", h.GetProducts)
			r.Put("/products/{code}", h.UpdateProduct)

			r.Post("/orders/open", h.OpenOrder)
			r.Post("/orders/lines", h.AddLine)
			r.Get("/orders/lines", h.GetLines)
			r.Post("/orders/commit", h.CommitOrder)
			r.Delete("/orders", h.DiscardOrder)

			r.Get("/orders", h.GetOrders)
			r.Get("/orders/{number}/invoice", h.GetInvoice)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
