package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/prior-it/clientbook/config"
)

// Routes that are only logged once per quiet-down period.
var quietRoutes = []string{
	"/favicon.ico",
	"/ping",
	"/metrics",
	"/static",
}

// RequestDebugger is middleware that logs every incoming request at debug level, before it is
// routed. If full is set, the query string and request headers are logged as well.
func RequestDebugger(logger *slog.Logger, full bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			args := []any{"method", r.Method, "path", r.URL.Path}
			if full {
				args = append(args, "query", r.URL.RawQuery, "headers", r.Header)
			}
			logger.Debug("Incoming request", args...)
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPLogger is middleware that will log HTTP requests, including context that might be added by the handler itself
// by calling scope.LogField.
func HTTPLogger(cfg *config.Config) func(http.Handler) http.Handler {
	sourceFieldName := ""
	if cfg.Log.Verbose || cfg.App.Debug {
		sourceFieldName = "source"
	}
	logger := httplog.NewLogger(cfg.App.Name, httplog.Options{
		LogLevel: cfg.Log.Level.ToSlog(),
		JSON:     cfg.Log.Format == config.LogFormatJSON,
		Concise:  !cfg.Log.Verbose,
		Tags: map[string]string{
			"version": cfg.App.Version,
			"env":     string(cfg.App.Env),
			"storage": string(cfg.Storage.Driver),
		},
		RequestHeaders:  cfg.Log.Verbose,
		ResponseHeaders: cfg.Log.Verbose,
		QuietDownRoutes: quietRoutes,
		QuietDownPeriod: 10 * time.Second, //nolint:mnd
		SourceFieldName: sourceFieldName,
	})
	return httplog.RequestLogger(logger)
}
