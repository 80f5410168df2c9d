package server_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/a-h/templ"
	"github.com/prior-it/clientbook/config"
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type State struct{}

func (s State) Close(_ context.Context) {}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:              "test",
			RequestTimeout:    30,
			FallbackLang:      "en",
			AuthenticationKey: "0123456789abcdef0123456789abcdef",
		},
	}
}

func newServer(t *testing.T) *server.Server[State] {
	t.Helper()
	cfg := testConfig()
	s := server.New(State{}, cfg).WithSessionStore(server.NewSessionStore(cfg))
	s.AttachDefaultMiddleware()
	return s
}

func do(s http.Handler, r *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	s.ServeHTTP(recorder, r)
	return recorder
}

func TestRouting(t *testing.T) {
	s := newServer(t)
	s.Get("/items/{id}", func(scope *server.Scope, _ State) error {
		_, err := fmt.Fprint(scope.Writer, "item ", scope.GetPath("id"))
		return err
	})

	t.Run("ok: path values", func(t *testing.T) {
		res := do(s, httptest.NewRequest(http.MethodGet, "/items/42", nil))
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "item 42", res.Body.String())
	})

	t.Run("ok: unknown page", func(t *testing.T) {
		res := do(s, httptest.NewRequest(http.MethodGet, "/nothing", nil))
		assert.Equal(t, http.StatusNotFound, res.Code)
		assert.Contains(t, res.Body.String(), "/nothing")
	})
}

func TestErrorHandler(t *testing.T) {
	s := newServer(t)
	for path, err := range map[string]error{
		"/missing":  fmt.Errorf("lookup: %w", core.ErrNotFound),
		"/conflict": errors.Join(core.ErrConflict, errors.New("duplicate")),
		"/broken":   errors.New("boom"),
		"/invalid":  fmt.Errorf("%w: address index", core.ErrBadRequest),
	} {
		s.Get(path, func(_ *server.Scope, _ State) error { return err })
	}

	for path, code := range map[string]int{
		"/missing":  http.StatusNotFound,
		"/conflict": http.StatusConflict,
		"/broken":   http.StatusInternalServerError,
		"/invalid":  http.StatusBadRequest,
	} {
		res := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, res.Code, path)
	}
}

func TestRedirect(t *testing.T) {
	s := newServer(t)
	s.Post("/go", func(scope *server.Scope, _ State) error {
		scope.Redirect("/elsewhere")
		return nil
	})

	t.Run("ok: see other", func(t *testing.T) {
		res := do(s, httptest.NewRequest(http.MethodPost, "/go", nil))
		assert.Equal(t, http.StatusSeeOther, res.Code)
		assert.Equal(t, "/elsewhere", res.Header().Get("Location"))
	})

	t.Run("ok: htmx redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/go", nil)
		req.Header.Set("HX-Request", "true")
		res := do(s, req)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "/elsewhere", res.Header().Get("HX-Redirect"))
	})
}

func TestParseForm(t *testing.T) {
	type data struct {
		Name  string   `schema:"name"`
		Lines []string `schema:"line"`
	}
	s := newServer(t)
	var parsed data
	s.Post("/form", func(scope *server.Scope, _ State) error {
		return scope.ParseForm(&parsed)
	})

	form := url.Values{"name": {"Asha"}, "line": {"a", "b"}, "unknown": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := do(s, req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, data{Name: "Asha", Lines: []string{"a", "b"}}, parsed)
}

func TestFlashes(t *testing.T) {
	s := newServer(t)
	s.Post("/save", func(scope *server.Scope, _ State) error {
		scope.AddFlash("Customer saved")
		scope.Redirect("/")
		return nil
	})
	s.Page("/page", templ.Raw("page body"))

	save := do(s, httptest.NewRequest(http.MethodPost, "/save", nil))
	require.Equal(t, http.StatusSeeOther, save.Code)
	cookies := save.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := do(s, req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Customer saved")
	assert.Contains(t, res.Body.String(), "page body")
}

func TestSessionStore(t *testing.T) {
	t.Run("ok: no store without an authentication key", func(t *testing.T) {
		cfg := testConfig()
		cfg.App.AuthenticationKey = ""
		assert.Nil(t, server.NewSessionStore(cfg))
	})

	t.Run("ok: flashes are dropped without a store", func(t *testing.T) {
		s := server.New(State{}, testConfig())
		s.AttachDefaultMiddleware()
		s.Post("/save", func(scope *server.Scope, _ State) error {
			scope.AddFlash("Customer saved")
			scope.Redirect("/")
			return nil
		})

		res := do(s, httptest.NewRequest(http.MethodPost, "/save", nil))
		assert.Equal(t, http.StatusSeeOther, res.Code)
		assert.Empty(t, res.Result().Cookies())
	})
}

func TestDetectLanguage(t *testing.T) {
	locales := fstest.MapFS{
		"en.yaml": &fstest.MapFile{Data: []byte("en:\n  hello: \"Hello\"\n")},
		"nl.yaml": &fstest.MapFile{Data: []byte("nl:\n  hello: \"Hallo\"\n")},
	}
	s := newServer(t).WithI18n(locales)
	s.Use(server.DetectLanguage[State])
	s.Get("/", func(scope *server.Scope, _ State) error {
		_, err := fmt.Fprint(scope.Writer, server.Language(scope.Context()))
		return err
	})

	for _, test := range []struct {
		header, query, expected string
	}{
		{"", "", "en"},
		{"nl", "", "nl"},
		{"fr", "", "en"},
		{"nl", "en", "en"},
	} {
		target := "/"
		if len(test.query) > 0 {
			target += "?lang=" + test.query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Accept-Language", test.header)
		res := do(s, req)
		assert.Equal(t, test.expected, res.Body.String(), "%+v", test)
	}
}

func TestRequestDebugger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("ok: logs method and path", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		server.RequestDebugger(logger, false)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/customer-list?x=1", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, buf.String(), "path=/customer-list")
		assert.NotContains(t, buf.String(), "query=")
	})

	t.Run("ok: logs the query when full", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		server.RequestDebugger(logger, true)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/customer-list?x=1", nil))

		assert.Contains(t, buf.String(), `query="x=1"`)
	})
}
