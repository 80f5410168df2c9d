package bootstrap

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prior-it/clientbook/config"
	"github.com/prior-it/clientbook/server"
)

// Web creates a new server and initializes all default systems for the web surface.
//
// This will initialise the server itself with its default middleware, Sentry (if enabled in
// config), translations and static files.
//
// You can supply additional middleware if you want to.
//
// Note that this function will add routes before returning, which means it is not possible to add additional global middleware after calling this function.
func Web[state server.State](
	stt state,
	cfg *config.Config,
	logger *slog.Logger,
	staticFS fs.ReadDirFS,
	localesFS fs.FS,
	middlewares ...func(http.Handler) http.Handler,
) *server.Server[state] {
	if cfg == nil {
		panic("You need to supply a config.Config value to bootstrap a new server")
	}

	s := server.New(stt, cfg).
		WithLogger(logger).
		WithI18n(localesFS)

	if store := server.NewSessionStore(cfg); store != nil {
		s.WithSessionStore(store)
	} else {
		logger.Warn("No authentication key configured, flash messages are disabled")
	}

	s.AttachDefaultMiddleware()

	// Enable sentry middleware
	if cfg.Sentry.Enabled {
		sentryHandler := sentryhttp.New(sentryhttp.Options{
			Repanic:         true,
			WaitForDelivery: true,
			Timeout:         5 * time.Second, //nolint:mnd
		})
		s.UseStd(sentryHandler.Handle)
	}

	// Fully disable caching in debug mode
	if cfg.App.Debug {
		s.UseStd(middleware.NoCache, server.RequestDebugger(logger, cfg.Log.Verbose))
	}

	s.UseStd(middlewares...)
	s.Use(server.DetectLanguage[state])

	s.StaticFiles("/static", os.Getenv("CLIENTBOOK_STATIC_FILES"), staticFS)

	return s
}
