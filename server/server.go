package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/schema"
	"github.com/gorilla/sessions"
	"github.com/prior-it/clientbook/config"
	"github.com/vearutop/statigz"
)

type (
	ErrorHandler    func(scope *Scope, err error)
	NotFoundHandler func(scope *Scope)
)

type State interface {
	Close(ctx context.Context)
}

type Server[state State] struct {
	mux          *chi.Mux
	state        state
	logger       *slog.Logger
	layout       templ.Component
	errorHandler ErrorHandler
	sessionStore sessions.Store
	decoder      *schema.Decoder
	cfg          *config.Config
}

type (
	Handler[state any]    func(scope *Scope, state state) error
	Middleware[state any] func(scope *Scope, state state) (context.Context, error)
)

// New creates a new server with the specified state object and configuration.
func New[state State](s state, cfg *config.Config) *Server[state] {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	server := &Server[state]{
		mux:          chi.NewMux(),
		state:        s,
		logger:       slog.Default(),
		layout:       defaultLayout(),
		errorHandler: DefaultErrorHandler,
		decoder:      decoder,
		cfg:          cfg,
	}

	// Attach default not found handler
	server.WithNotFoundHandler(
		func(scope *Scope) {
			scope.Writer.WriteHeader(http.StatusNotFound)
			render.PlainText(
				scope.Writer,
				scope.Request,
				fmt.Sprintf("Page %q not found", scope.Path()),
			)
		},
	)

	return server
}

func (server *Server[state]) WithErrorHandler(errorHandler ErrorHandler) *Server[state] {
	server.errorHandler = errorHandler
	return server
}

func (server *Server[state]) WithNotFoundHandler(notFoundHandler NotFoundHandler) *Server[state] {
	server.mux.NotFound(server.handle(func(scope *Scope, _ state) error {
		notFoundHandler(scope)
		return nil
	}))
	return server
}

func (server *Server[state]) WithLogger(logger *slog.Logger) *Server[state] {
	server.logger = logger
	return server
}

func (server *Server[state]) WithDefaultLayout(layout templ.Component) *Server[state] {
	server.layout = layout
	return server
}

// WithSessionStore sets the store that keeps flash messages between requests.
// Without a session store, flash messages are dropped.
func (server *Server[state]) WithSessionStore(store sessions.Store) *Server[state] {
	server.sessionStore = store
	return server
}

func (server *Server[state]) NewScope(w http.ResponseWriter, r *http.Request) *Scope {
	return &Scope{
		Writer:  w,
		Request: r,
		logger:  server.logger,
		layout:  server.layout,
		store:   server.sessionStore,
		decoder: server.decoder,
		Cfg:     server.cfg,
	}
}

func (server *Server[state]) handle(handler Handler[state]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := server.NewScope(w, r)
		err := handler(scope, server.state)
		if err != nil {
			server.errorHandler(scope, err)
		}
		_ = r.Body.Close()
	}
}

// Utility function that converts server middleware to a http handler
func (server *Server[state]) HandlerMiddleware(
	middleware Middleware[state],
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := server.NewScope(w, r)
			ctx, err := middleware(scope, server.state)
			if err != nil {
				server.errorHandler(scope, err)
			} else {
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func (server *Server[state]) AttachDefaultMiddleware() {
	server.UseStd(
		middleware.RedirectSlashes,
		middleware.Recoverer,
		middleware.RealIP,
		middleware.RequestID,
		HTTPLogger(server.cfg),
		middleware.Timeout(
			time.Duration(server.cfg.App.RequestTimeout)*time.Second,
		),
		server.ContextMiddleware,
	)
}

// Start runs the server until ctx is canceled or the process receives an interrupt.
// If no listener is provided, a new TCP listener will be created on the configured host and port.
func (server *Server[state]) Start(ctx context.Context, listener net.Listener) error {
	// Handle OS signals to cancel the context
	ctxServer, stopSignal := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignal()

	host := fmt.Sprintf("%v:%v", server.cfg.App.Host, server.cfg.App.Port)
	if listener != nil {
		host = listener.Addr().String()
	}
	httpServer := &http.Server{
		Addr:              host,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
	}

	errorCh := make(chan error, 1)
	// Run the actual server
	go func() {
		server.logger.Info("Starting server", "url", server.cfg.BaseURL(), "host", host)
		var err error
		if listener != nil {
			err = httpServer.Serve(listener)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorCh <- err
		}
		close(errorCh)
	}()

	var errServer error
	select {
	case err := <-errorCh:
		errServer = err
	case <-ctxServer.Done():
		server.logger.Info("Server interrupt received")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(
		context.Background(),
		time.Duration(server.cfg.App.ShutdownTimeout)*time.Second,
	)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		server.logger.Warn("Server did not shut down cleanly", "error", err)
	}
	server.Shutdown(ctxShutdown)

	return errServer
}

// Shutdown will gracefully release all server resources. You generally don't need to call this manually.
func (server *Server[state]) Shutdown(ctx context.Context) {
	sentryTimeout := max(0, time.Duration(server.cfg.App.ShutdownTimeout-1))
	sentry.Flush(sentryTimeout * time.Second)
	server.state.Close(ctx)
}

// ServeHTTP implements [net/http.Handler].
func (server *Server[state]) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	server.mux.ServeHTTP(writer, request)
}

// UseStd appends a stdlib middleware handler to the middleware stack.
//
// The middleware stack for any server will execute before searching for a matching
// route to a specific handler, which provides opportunity to respond early,
// change the course of the request execution, or set request-scoped values for
// the next Handler.
func (server *Server[state]) UseStd(middlewares ...func(http.Handler) http.Handler) *Server[state] {
	server.mux.Use(middlewares...)
	return server
}

// Use appends a server middleware handler to the middleware stack.
func (server *Server[state]) Use(
	middlewares ...Middleware[state],
) *Server[state] {
	for _, mi := range middlewares {
		server.mux.Use(server.HandlerMiddleware(mi))
	}
	return server
}

// Handle adds the route `pattern` that matches any http method to
// execute the `handler` [net/http.Handler].
func (server *Server[state]) Handle(pattern string, handler http.Handler) *Server[state] {
	server.mux.Handle(pattern, handler)
	return server
}

// StaticFiles serves all files in the `dir` directory or the `fs` FileSystem at the `pattern` url.
// In debug mode, assets will be loaded from disk to support hot-reloading.
// In production mode, assets will be gzipped and embedded in the executable instead.
// Debug mode hot-reloading will be disabled if dir is set to the empty string.
// Filesystems will ignore `/static` folders and instead directly target the files inside. So if your
// filesystem has a file "/static/file.txt", you can get it directly with "/file.txt".
//
// Example:
//
//	server.StaticFiles("/assets/", "./static/", assetsFS)
func (server *Server[state]) StaticFiles(pattern string, dir string, files fs.ReadDirFS) {
	if server.cfg.App.Debug && len(dir) > 0 {
		server.Handle(
			pattern+"*",
			http.StripPrefix(pattern,
				http.FileServer(http.Dir(dir)),
			),
		)
	} else {
		server.Handle(
			pattern+"*",
			http.StripPrefix(pattern,
				statigz.FileServer(files, statigz.EncodeOnInit, statigz.FSPrefix("static")),
			),
		)
	}
}

// Group attaches a subrouter along a routing path, which can have its own middleware.
//
// Note that Group() does NOT return the original server but rather
// a subroute server that only serves routes along the specified Group pattern.
func (server *Server[state]) Group(
	pattern string,
) *Server[state] {
	srv := Server[state](*server) //nolint:unconvert // shallow copy
	srv.mux = chi.NewMux()
	server.mux.Mount(pattern, srv.mux)
	return &srv
}

// Get adds the route `pattern` that matches a GET http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Get(
	pattern string,
	handlerFn func(scope *Scope, state state) error,
) *Server[state] {
	server.mux.Get(pattern, server.handle(handlerFn))
	return server
}

// Post adds the route `pattern` that matches a POST http method to execute the `handlerFn` http.HandlerFunc.
func (server *Server[state]) Post(
	pattern string,
	handlerFn func(scope *Scope, state state) error,
) *Server[state] {
	server.mux.Post(pattern, server.handle(handlerFn))
	return server
}

// Page adds the route `pattern` that matches a GET http method to render the specified templ component in the default layout.
func (server *Server[state]) Page(
	pattern string,
	component templ.Component,
) *Server[state] {
	server.mux.Get(pattern, server.handle(func(scope *Scope, _ state) error {
		return scope.RenderPage(component)
	}))
	return server
}
