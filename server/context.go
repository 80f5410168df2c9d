package server

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/prior-it/clientbook/config"
)

type contextKey uint

const (
	ctxSession contextKey = iota
	ctxConfig
	ctxFlashes
)

// ContextMiddleware adds the configuration and the flash session to the request context.
func (server *Server[state]) ContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxConfig, server.cfg)
		if server.sessionStore != nil {
			// Get always returns a usable session, a cookie that cannot be decoded is replaced
			session, err := server.sessionStore.Get(r, cookieFlash)
			if err != nil {
				server.logger.Debug("Discarding invalid session cookie", "error", err)
			}
			ctx = context.WithValue(ctx, ctxSession, configureCookie(server.cfg, session))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Session returns the flash session of the current request, or nil if there is none.
func Session(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ctxSession).(*sessions.Session)
	return session
}

// Config returns the configuration, or nil if the context middleware was not attached.
func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ctxConfig).(*config.Config)
	return cfg
}

// PageFlashes returns the flash messages that should be shown on the page that is being rendered.
func PageFlashes(ctx context.Context) []string {
	flashes, _ := ctx.Value(ctxFlashes).([]string)
	return flashes
}
