package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
)

var labels = map[string]string{
	string(form.FieldTaxID):        "Tax ID",
	string(form.FieldFullName):     "Full name",
	string(form.FieldEmail):        "Email",
	string(form.FieldMobile):       "Mobile",
	string(form.FieldAddressLine1): "Address line 1",
	string(form.FieldAddressLine2): "Address line 2",
	string(form.FieldPostcode):     "Postcode",
	string(form.FieldState):        "State",
	string(form.FieldCity):         "City",
}

// input is a single text input in the form, bound to either a top-level field or a field of the
// address at index address.
type input struct {
	field        form.Field
	address      int
	addressField form.AddressField
	model        textinput.Model
}

func newInput(field form.Field, address int, addressField form.AddressField) input {
	m := textinput.New()
	m.Prompt = "› "
	return input{field: field, address: address, addressField: addressField, model: m}
}

func (in input) isAddress() bool {
	return in.address >= 0
}

func (in input) name() string {
	if in.isAddress() {
		return string(in.addressField)
	}
	return string(in.field)
}

func (in input) errorKey() string {
	if in.isAddress() {
		return form.AddressKey(in.addressField, in.address)
	}
	return string(in.field)
}

func (in input) read(d form.Draft) string {
	if in.isAddress() {
		return d.GetAddress(in.address, in.addressField)
	}
	return d.Get(in.field)
}

func (in input) write(f *form.Flow, value string) error {
	if in.isAddress() {
		return f.SetAddressField(in.address, in.addressField, value)
	}
	return f.SetField(in.field, value)
}

func (ui *UI) openForm(id *core.CustomerID) tea.Cmd {
	flow := form.New(ui.store, ui.enricher, id, ui.opts)
	flow.OnChange(func() {
		notifyChange(ui.drafts)
	})
	ui.flow = flow
	ui.screen = screenForm
	ui.status = ""
	ui.err = nil
	ui.focus = 0
	return ui.buildInputs()
}

func (ui *UI) closeForm() {
	if ui.flow != nil {
		ui.flow.Close()
	}
	ui.flow = nil
	ui.inputs = nil
	ui.focus = 0
	ui.screen = screenList
}

// buildInputs creates an input for every field of the current draft and focuses the input at
// ui.focus, or the last input if there are fewer inputs now.
func (ui *UI) buildInputs() tea.Cmd {
	draft := ui.flow.Draft()
	inputs := make([]input, 0, len(form.Fields)+len(draft.Addresses)*len(form.AddressFields))
	for _, field := range form.Fields {
		inputs = append(inputs, newInput(field, -1, ""))
	}
	for i := range draft.Addresses {
		for _, field := range form.AddressFields {
			inputs = append(inputs, newInput("", i, field))
		}
	}
	for i := range inputs {
		inputs[i].model.SetValue(inputs[i].read(draft))
	}
	ui.inputs = inputs
	return ui.focusInput(min(ui.focus, len(inputs)-1))
}

func (ui *UI) focusInput(index int) tea.Cmd {
	if ui.focus < len(ui.inputs) {
		ui.inputs[ui.focus].model.Blur()
	}
	ui.focus = index
	return ui.inputs[index].model.Focus()
}

// syncInputs copies the current draft into the inputs, for changes that were not typed by the user.
func (ui *UI) syncInputs() {
	draft := ui.flow.Draft()
	if len(ui.inputs) != len(form.Fields)+len(draft.Addresses)*len(form.AddressFields) {
		ui.buildInputs()
		return
	}
	for i := range ui.inputs {
		if value := ui.inputs[i].read(draft); ui.inputs[i].model.Value() != value {
			ui.inputs[i].model.SetValue(value)
		}
	}
}

//nolint:cyclop
func (ui *UI) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, ui.formKeys.Back):
		ui.closeForm()
		return nil
	case key.Matches(msg, ui.formKeys.Save):
		return ui.submit()
	case key.Matches(msg, ui.formKeys.Next):
		return ui.focusInput((ui.focus + 1) % len(ui.inputs))
	case key.Matches(msg, ui.formKeys.Previous):
		return ui.focusInput((ui.focus - 1 + len(ui.inputs)) % len(ui.inputs))
	case key.Matches(msg, ui.formKeys.AddAddress):
		if !ui.flow.AddAddress() {
			ui.status = fmt.Sprintf("A customer can have at most %d addresses", core.MaxAddresses)
			return nil
		}
		ui.focus = len(ui.inputs)
		return ui.buildInputs()
	case key.Matches(msg, ui.formKeys.RemoveAddress):
		in := ui.inputs[ui.focus]
		if !in.isAddress() || !ui.flow.RemoveAddress(in.address) {
			return nil
		}
		ui.focus = max(0, ui.focus-len(form.AddressFields))
		return ui.buildInputs()
	case key.Matches(msg, ui.formKeys.Enrich):
		flow := ui.flow
		return func() tea.Msg {
			flow.Enrich(context.Background())
			return nil
		}
	}
	return ui.updateInputs(msg)
}

// updateInputs passes msg to the focused input and writes any change to the open flow.
func (ui *UI) updateInputs(msg tea.Msg) tea.Cmd {
	if len(ui.inputs) == 0 {
		return nil
	}
	in := &ui.inputs[ui.focus]
	before := in.model.Value()
	var cmd tea.Cmd
	in.model, cmd = in.model.Update(msg)
	if value := in.model.Value(); value != before {
		if err := in.write(ui.flow, value); err != nil {
			ui.err = err
		}
	}
	return cmd
}

func (ui *UI) submit() tea.Cmd {
	flow := ui.flow
	return func() tea.Msg {
		customer, err := flow.Submit(context.Background())
		return savedMsg{flow: flow, customer: customer, err: err}
	}
}

func (ui *UI) handleSaveError(err error) {
	if errors.Is(err, form.ErrInvalidDraft) {
		ui.err = nil
		ui.status = "Please correct the highlighted fields"
		return
	}
	ui.status = ""
	ui.err = err
}

func (ui *UI) formView() string {
	errs := ui.flow.Errors()
	taxIDPending := ui.flow.TaxIDPending()
	postcodePending := ui.flow.PostcodePending()

	var b strings.Builder
	for _, in := range ui.inputs {
		if in.isAddress() && in.addressField == form.AddressFields[0] {
			b.WriteString(StyleSection.Render(fmt.Sprintf("Address %d", in.address+1)))
			b.WriteString("\n")
		}
		b.WriteString(StyleLabel.Render(labels[in.name()]))
		b.WriteString(in.model.View())
		if (in.field == form.FieldTaxID && taxIDPending) ||
			(in.addressField == form.FieldPostcode && postcodePending) {
			b.WriteString(" " + ui.spinner.View())
		}
		b.WriteString("\n")
		if msg, ok := errs[in.errorKey()]; ok {
			b.WriteString(StyleLabel.Render("") + StyleError.Render(msg) + "\n")
		}
	}
	return b.String()
}
