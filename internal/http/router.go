package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"vessel/internal/http/handlers"
	"vessel/internal/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(app.Logger))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/pools", func(r chi.Router) {
		r.Post("/", app.PoolsCreate)
		r.Get("/", app.PoolsList)
		r.Get("/{id}", app.PoolsGet)
		r.Post("/{id}/investments", app.InvestmentsCreate)
		r.Post("/{id}/disburse", app.PoolsDisburse)
		r.Post("/{id}/close", app.PoolsClose)
	})

	r.Route("/v1/invoices", func(r chi.Router) {
		r.Get("/pools", app.PoolsByExporter)
		r.Get("/{id}/pool", app.PoolByInvoice)
		r.Post("/{id}/repay", app.RepaymentsCreate)
	})

	r.Post("/v1/investments/quote", app.InvestmentsQuote)
	r.Get("/v1/portfolio", app.Portfolio)

	return r
}
