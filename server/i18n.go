package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/invopop/ctxi18n"
	"github.com/invopop/ctxi18n/i18n"
)

// WithI18n loads all language bundles from fs.
// This will panic if APP_FALLBACKLANG has not been set or if no bundle could be found for the
// fallback language.
func (server *Server[state]) WithI18n(fs fs.FS) *Server[state] {
	lang := i18n.Code(server.cfg.App.FallbackLang)
	if len(lang) == 0 {
		panic("You need to set a fallbacklang in the project config before calling WithI18n!")
	}
	if err := ctxi18n.LoadWithDefault(fs, lang); err != nil {
		panic(err)
	}
	ctxi18n.DefaultLocale = lang

	return server
}

// DetectLanguage is middleware that automatically tries to detect a user's language by looking at
// the "lang" query parameter and the request headers. If the detected language is not found, it
// will fallback to the configured fallback language.
// This will return an error only if no bundle could be found for the configured fallback language.
func DetectLanguage[state any](scope *Scope, _ state) (context.Context, error) {
	ctx := scope.Context()

	// Skip this middleware if no language was set
	if len(scope.Cfg.App.FallbackLang) == 0 {
		return ctx, nil
	}

	ctxi18n.DefaultLocale = i18n.Code(scope.Cfg.App.FallbackLang)

	// Use the browser's language...
	lang := scope.GetHeader("Accept-Language")

	// ... unless one was requested explicitly
	if query := scope.GetQuery("lang"); len(query) > 0 {
		lang = query
	}

	ctx, err := ctxi18n.WithLocale(ctx, lang)
	if errors.Is(err, ctxi18n.ErrMissingLocale) {
		return ctx, fmt.Errorf(
			"no language bundle found for the fallback language %q: %w",
			scope.Cfg.App.FallbackLang,
			err,
		)
	}

	scope.LogField("lang", slog.StringValue(Language(ctx)))

	return ctx, err
}

// Return the 2-letter code for the language that is currently active
func Language(ctx context.Context) string {
	locale := ctxi18n.Locale(ctx)
	if locale == nil {
		return ""
	}
	return string(locale.Code())
}
