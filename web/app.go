// Package web serves the customer pages over HTTP.
package web

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
	"github.com/prior-it/clientbook/store"
)

// App is the state that is shared by every request.
type App struct {
	Store    *store.Store
	Enricher core.Enricher
	Form     form.Options
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	OnClose  func(ctx context.Context)
}

// Close implements server.State.Close
func (app *App) Close(ctx context.Context) {
	if app.OnClose != nil {
		app.OnClose(ctx)
	}
}

// newFlow starts a form flow for a single request. The web surface has no live watchers, lookups
// only run through Flow.Enrich.
func (app *App) newFlow(id *core.CustomerID) *form.Flow {
	return form.New(app.Store, app.Enricher, id, app.Form)
}
