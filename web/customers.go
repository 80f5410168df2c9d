package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/invopop/ctxi18n/i18n"
	"github.com/prior-it/clientbook/components"
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
	"github.com/prior-it/clientbook/server"
	"github.com/prior-it/clientbook/store"
)

const listURL = "/customer-list"

func CreateCustomerPage(scope *server.Scope, app *App) error {
	flow := app.newFlow(nil)
	defer flow.Close()
	return renderForm(scope, flow, "/", http.StatusOK)
}

func EditCustomerPage(scope *server.Scope, app *App) error {
	id, err := pathID(scope)
	if err != nil {
		return err
	}
	flow := app.newFlow(&id)
	defer flow.Close()
	return renderForm(scope, flow, editURL(id), http.StatusOK)
}

func CreateCustomer(scope *server.Scope, app *App) error {
	flow := app.newFlow(nil)
	defer flow.Close()
	return submitForm(scope, app, flow, "/")
}

func EditCustomer(scope *server.Scope, app *App) error {
	id, err := pathID(scope)
	if err != nil {
		return err
	}
	flow := app.newFlow(&id)
	defer flow.Close()
	return submitForm(scope, app, flow, editURL(id))
}

// submitForm loads the posted draft into the flow and performs the posted intent.
// Every intent except a successful save renders the form again.
func submitForm(scope *server.Scope, app *App, flow *form.Flow, action string) error {
	var data customerForm
	if err := scope.ParseForm(&data); err != nil {
		return err
	}
	flow.Load(data.draft())
	scope.LogString("intent", data.Intent)

	switch data.Intent {
	case intentAddAddress:
		flow.AddAddress()
	case intentRemoveAddress:
		index, err := strconv.Atoi(scope.GetQuery("address"))
		if err != nil {
			return errors.Join(core.ErrBadRequest, fmt.Errorf("invalid address index: %w", err))
		}
		flow.RemoveAddress(index)
	case intentEnrich:
		flow.Enrich(scope.Context())
	case intentSave, "":
		customer, err := flow.Submit(scope.Context())
		if errors.Is(err, form.ErrInvalidDraft) {
			return renderForm(scope, flow, action, http.StatusUnprocessableEntity)
		}
		if err != nil {
			return err
		}
		scope.LogField("customer_id", slog.Int64Value(int64(customer.ID)))
		scope.AddFlash(i18n.T(scope.Context(), "flash.saved", i18n.M{"name": customer.FullName}))
		scope.Redirect(listURL)
		return nil
	default:
		return fmt.Errorf("%w: unknown intent %q", core.ErrBadRequest, data.Intent)
	}
	return renderForm(scope, flow, action, http.StatusOK)
}

func renderForm(scope *server.Scope, flow *form.Flow, action string, code int) error {
	return scope.RenderPageStatus(code, components.CustomerForm(components.CustomerFormView{
		Mode:   flow.Mode(),
		Action: action,
		Draft:  flow.Draft(),
		Errors: flow.Errors(),
	}))
}

func CustomerListPage(scope *server.Scope, app *App) error {
	return scope.RenderPage(components.CustomerList(app.Store.Customers()))
}

func DeleteCustomer(scope *server.Scope, app *App) error {
	id, err := pathID(scope)
	if err != nil {
		return err
	}
	if err := app.Store.Dispatch(scope.Context(), store.Delete{ID: id}); err != nil {
		return err
	}
	scope.LogField("customer_id", slog.Int64Value(int64(id)))
	scope.AddFlash(i18n.T(scope.Context(), "flash.deleted"))
	scope.Redirect(listURL)
	return nil
}

// ListCustomers returns all customers as JSON, in the same shape as they are stored.
func ListCustomers(scope *server.Scope, app *App) error {
	customers := app.Store.Customers()
	if customers == nil {
		customers = []core.Customer{}
	}
	scope.RenderJSON(customers)
	return nil
}

func pathID(scope *server.Scope) (core.CustomerID, error) {
	id, err := core.ParseCustomerID(scope.GetPath("id"))
	if err != nil {
		return 0, errors.Join(core.ErrNotFound, err)
	}
	return id, nil
}

func editURL(id core.CustomerID) string {
	return "/edit-customer/" + id.String()
}
