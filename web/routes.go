package web

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prior-it/clientbook/components"
	"github.com/prior-it/clientbook/server"
)

// Routes attaches every page of the web surface to the server.
func Routes(s *server.Server[*App], app *App) {
	s.WithDefaultLayout(components.Layout())

	s.Get("/", CreateCustomerPage).
		Post("/", CreateCustomer).
		Get("/edit-customer/{id}", EditCustomerPage).
		Post("/edit-customer/{id}", EditCustomer).
		Get("/customer-list", CustomerListPage).
		Post("/customer-list/{id}/delete", DeleteCustomer).
		Get("/ping", func(scope *server.Scope, _ *App) error {
			render.PlainText(scope.Writer, scope.Request, "pong")
			return nil
		})

	s.Group("/api").
		UseStd(render.SetContentType(render.ContentTypeJSON)).
		Get("/customers", ListCustomers)

	if app.Gatherer != nil {
		s.Handle("/metrics", promhttp.HandlerFor(app.Gatherer, promhttp.HandlerOpts{}))
	} else {
		s.Handle("/metrics", http.NotFoundHandler())
	}
}
