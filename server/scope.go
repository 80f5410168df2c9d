package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/gorilla/schema"
	"github.com/gorilla/sessions"
	"github.com/prior-it/clientbook/config"
)

// Scope holds everything a handler needs to know about the current request.
type Scope struct {
	Writer  http.ResponseWriter
	Request *http.Request
	Cfg     *config.Config
	logger  *slog.Logger
	layout  templ.Component
	store   sessions.Store
	decoder *schema.Decoder
}

func (scope *Scope) StatusCode(code int) {
	scope.Writer.WriteHeader(code)
}

// Log the specified error message. args is a list of structured fields to add to the error message.
// The arguments should alternate between a field's name (string) and its value (any).
// This behaves the same as [log/slog.Error]
//
// # Example
//
//	scope.Error("Something went wrong", "error", err, "customer", id)
func (scope *Scope) Error(msg string, args ...any) {
	scope.logger.Error(msg, args...)
}

// Log the specified debug message. args is a list of structured fields to add to the message.
// This behaves the same as [log/slog.Debug]
func (scope *Scope) Debug(msg string, args ...any) {
	scope.logger.Debug(msg, args...)
}

// LogString will add the specified field and its value to the current request's log entry
func (scope *Scope) LogString(field string, value string) {
	scope.LogField(field, slog.StringValue(value))
}

// LogField will add the specified field and its value to the current request's log entry
//
// # Example
//
// scope.LogField("customer_id", slog.Int64Value(int64(id)))
func (scope *Scope) LogField(field string, value slog.Value) {
	httplog.LogEntrySetField(scope.Context(), field, value)
}

// Context returns the request's context.
func (scope *Scope) Context() context.Context {
	return scope.Request.Context()
}

// Path returns the full path of the request.
func (scope *Scope) Path() string {
	return scope.Request.URL.Path
}

// GetPath returns the value for the named path wildcard in the router pattern
// that matched the request.
// It returns the empty string if the request was not matched against a pattern
// or there is no such wildcard in the pattern.
//
// E.g.: A route defined as `/edit-customer/{id}` can call `GetPath("id")` to return the
// value for "id" in the current path.
func (scope *Scope) GetPath(key string) string {
	return scope.Request.PathValue(key)
}

// ParseForm decodes the submitted form values into v, using the `schema` struct tags.
// Unknown form keys are ignored.
//
// # Example:
//
//	var data SomeStruct
//	if err := scope.ParseForm(&data); err != nil {
//		return fmt.Errorf("cannot parse body: %w", err)
//	}
func (scope *Scope) ParseForm(v any) error {
	if err := scope.Request.ParseForm(); err != nil {
		return fmt.Errorf("cannot parse form: %w", err)
	}
	if err := scope.decoder.Decode(v, scope.Request.PostForm); err != nil {
		return fmt.Errorf("cannot decode form: %w", err)
	}
	return nil
}

// GetQuery returns the first value associated with the given query parameter in the request url.
// If there are no values set for the query param, this returns the empty string.
func (scope *Scope) GetQuery(param string) string {
	return scope.Request.URL.Query().Get(param)
}

// GetHeader returns the first value associated with the given header in the request.
// If there are no values set for the header, this returns the empty string.
func (scope *Scope) GetHeader(header string) string {
	return scope.Request.Header.Get(header)
}

// AddHeader adds the header, value pair to the response header. It appends to any existing values associated with key.
func (scope *Scope) AddHeader(header string, value string) {
	scope.Writer.Header().Add(header, value)
}

// Redirect will return a response that redirects the user to the specified url.
// If HTMX is available, this will redirect using HTMX.
func (scope *Scope) Redirect(url string) {
	if scope.GetHeader("HX-Request") == "true" {
		scope.AddHeader("HX-Redirect", url)
		scope.StatusCode(http.StatusOK)
	} else {
		scope.AddHeader("Location", url)
		scope.StatusCode(http.StatusSeeOther)
	}
}

// RenderJSON writes v as a JSON response.
func (scope *Scope) RenderJSON(v any) {
	render.JSON(scope.Writer, scope.Request, v)
}

// RenderComponent renders the specified component in the response body, without any layout.
func (scope *Scope) RenderComponent(
	component templ.Component,
) error {
	return component.Render(scope.Context(), scope.Writer)
}

// RenderPage renders the specified page in the response body with status 200.
// If the request was made using HTMX, it will simply return the pages contents.
// Otherwise it will return the page surrounded with the default lay-out, together with any
// pending flash messages.
func (scope *Scope) RenderPage(
	page templ.Component,
) error {
	return scope.RenderPageStatus(http.StatusOK, page)
}

// RenderPageStatus renders the specified page like RenderPage, with a custom status code.
//
// # Example:
//
//	return scope.RenderPageStatus(http.StatusUnprocessableEntity, components.CustomerForm(view))
func (scope *Scope) RenderPageStatus(
	code int,
	page templ.Component,
) error {
	scope.Writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	if scope.GetHeader("hx-request") == "true" {
		scope.StatusCode(code)
		return scope.RenderComponent(page)
	}
	// Flashes have to be read before the status code is written, they update the cookie.
	ctx := context.WithValue(scope.Context(), ctxFlashes, scope.Flashes())
	ctx = templ.WithChildren(ctx, page)
	scope.StatusCode(code)
	return scope.layout.Render(ctx, scope.Writer)
}
