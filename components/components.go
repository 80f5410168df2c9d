// Package components renders the pages of the web surface.
//
// The pages are written as templ files, run `templ generate` after changing them.
package components

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
)

//go:embed static/*
var EmbedStatic embed.FS

// CustomerFormView is everything the customer form needs to render itself.
type CustomerFormView struct {
	Mode   form.Mode
	Action string
	Draft  form.Draft
	Errors form.Errors
}

// hasError reports whether the input with the specified form key failed validation.
func (view CustomerFormView) hasError(name string) bool {
	_, ok := view.Errors[errorKey(name)]
	return ok
}

// errorMessage returns the translation key of the error for the input with the specified form key.
func (view CustomerFormView) errorMessage(name string) string {
	return "errors." + view.Errors.Field(errorKey(name))
}

// errorKey converts a form key like "addresses.1.postcode" into the validation key "postcode_1".
func errorKey(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) != 3 { //nolint:mnd
		return name
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return name
	}
	return form.AddressKey(form.AddressField(parts[2]), index)
}

func addressName(index int, field form.AddressField) string {
	return fmt.Sprintf("addresses.%d.%s", index, field)
}

func removeAddressURL(action string, index int) string {
	return action + "?address=" + strconv.Itoa(index)
}

func editURL(id core.CustomerID) string {
	return "/edit-customer/" + id.String()
}

func deleteURL(id core.CustomerID) string {
	return "/customer-list/" + id.String() + "/delete"
}
