/*
Package server provides a HTTP server on top of chi.
Handlers take an application-specific state object (used for dependency injection)
and a [Scope] object which wraps the current request and contains a lot of utility functions.

Basic example:

	func main() {
		cfg, err := config.Load(os.DirFS("."))
		if err != nil {
			log.Fatal(err)
		}

		// Create server
		app := state.New()
		s := server.New(app, cfg).
			WithLogger(app.Logger).
			WithDefaultLayout(components.Layout())
		s.AttachDefaultMiddleware()

		// Attach routes
		s.StaticFiles("/static/", "./static/", staticFS)
		s.Get("/", Home).
			Post("/customers", handlers.CreateCustomer)

		// Run server
		log.Fatal(s.Start(context.Background(), nil))
	}

	func Home(scope *server.Scope, _ *state.State) error {
		return scope.RenderPage(components.HomePage())
	}
*/
package server
