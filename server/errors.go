package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/prior-it/clientbook/core"
)

func DefaultErrorHandler(scope *Scope, err error) {
	code, msg := func() (int, string) {
		switch {
		case errors.Is(err, core.ErrConflict):
			return http.StatusConflict, "conflict"
		case errors.Is(err, core.ErrNotFound):
			return http.StatusNotFound, "not found"
		case errors.Is(err, core.ErrBadRequest):
			return http.StatusBadRequest, "bad request"
		}
		return http.StatusInternalServerError, "internal server error"
	}()
	if code >= http.StatusInternalServerError {
		scope.Error("Server error", "error", err)
	} else {
		scope.Debug("Request failed", "error", err, "status", code)
	}
	scope.Writer.WriteHeader(code)
	render.PlainText(scope.Writer, scope.Request, msg)
}
