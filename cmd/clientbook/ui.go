package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
	"github.com/prior-it/clientbook/store"
)

var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#139DFF"))
	StyleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	StyleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("#1EA97C"))
	StyleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#525252"))
	StyleSelected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#139DFF"))
	StyleLabel    = lipgloss.NewStyle().Width(16)
	StyleSection  = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

type screen int

const (
	screenList screen = iota
	screenForm
)

type (
	// customersChangedMsg is sent whenever the store state changed, from any source.
	customersChangedMsg struct{}
	// draftChangedMsg is sent whenever the draft of the open form changed, typically because a
	// lookup finished in the background.
	draftChangedMsg struct{}
	savedMsg        struct {
		flow     *form.Flow
		customer core.Customer
		err      error
	}
	deletedMsg struct {
		customer core.Customer
		err      error
	}
)

// UI is the terminal interface. It shows the customer list and opens a form to create or edit a
// customer.
type UI struct {
	store       *store.Store
	enricher    core.Enricher
	opts        form.Options
	changes     chan struct{}
	drafts      chan struct{}
	done        chan struct{}
	unsubscribe func()

	listKeys listKeyMap
	formKeys formKeyMap
	help     help.Model
	spinner  spinner.Model

	screen    screen
	customers []core.Customer
	cursor    int

	flow   *form.Flow
	inputs []input
	focus  int

	status   string
	err      error
	quitting bool
}

func NewUI(st *store.Store, enricher core.Enricher, opts form.Options) *UI {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = StyleTitle

	ui := &UI{
		store:     st,
		enricher:  enricher,
		opts:      opts,
		changes:   make(chan struct{}, 1),
		drafts:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		listKeys:  listKeys,
		formKeys:  formKeys,
		help:      help.New(),
		spinner:   s,
		customers: st.Customers(),
	}
	ui.unsubscribe = st.Subscribe(func(store.State) {
		notifyChange(ui.changes)
	})
	return ui
}

// notifyChange marks ch as changed without ever blocking. Receivers always read the latest state,
// so a pending notification covers every change made after it.
func notifyChange(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// listen waits for the next change notification.
func (ui *UI) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ui.changes:
			return customersChangedMsg{}
		case <-ui.drafts:
			return draftChangedMsg{}
		case <-ui.done:
			return nil
		}
	}
}

// Close stops listening for changes and closes the open form, if any.
func (ui *UI) Close() {
	select {
	case <-ui.done:
		return
	default:
	}
	ui.unsubscribe()
	if ui.flow != nil {
		ui.flow.Close()
	}
	close(ui.done)
}

func (ui *UI) Init() tea.Cmd {
	return tea.Batch(ui.spinner.Tick, ui.listen())
}

func (ui *UI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		ui.help.Width = msg.Width

	case customersChangedMsg:
		ui.refreshCustomers()
		cmds = append(cmds, ui.listen())

	case draftChangedMsg:
		if ui.flow != nil {
			ui.syncInputs()
		}
		cmds = append(cmds, ui.listen())

	case savedMsg:
		if msg.flow != ui.flow {
			break
		}
		if msg.err != nil {
			ui.handleSaveError(msg.err)
			break
		}
		ui.closeForm()
		ui.err = nil
		ui.status = fmt.Sprintf("Saved %s", msg.customer.FullName)
		ui.refreshCustomers()

	case deletedMsg:
		if msg.err != nil {
			ui.err = msg.err
			break
		}
		ui.err = nil
		ui.status = fmt.Sprintf("Deleted %s", msg.customer.FullName)
		ui.refreshCustomers()

	case tea.KeyMsg:
		var cmd tea.Cmd
		if ui.screen == screenForm {
			cmd = ui.updateForm(msg)
		} else {
			cmd = ui.updateList(msg)
		}
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		ui.spinner, cmd = ui.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		if ui.screen == screenForm {
			cmds = append(cmds, ui.updateInputs(msg))
		}
	}

	return ui, tea.Batch(cmds...)
}

func (ui *UI) updateList(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, ui.listKeys.Quit):
		ui.quitting = true
		return tea.Quit
	case key.Matches(msg, ui.listKeys.Help):
		ui.help.ShowAll = !ui.help.ShowAll
	case key.Matches(msg, ui.listKeys.Up):
		if ui.cursor > 0 {
			ui.cursor--
		}
	case key.Matches(msg, ui.listKeys.Down):
		if ui.cursor < len(ui.customers)-1 {
			ui.cursor++
		}
	case key.Matches(msg, ui.listKeys.New):
		return ui.openForm(nil)
	case key.Matches(msg, ui.listKeys.Edit):
		if c, ok := ui.selected(); ok {
			return ui.openForm(&c.ID)
		}
	case key.Matches(msg, ui.listKeys.Delete):
		if c, ok := ui.selected(); ok {
			return ui.delete(c)
		}
	}
	return nil
}

func (ui *UI) selected() (core.Customer, bool) {
	if ui.cursor < 0 || ui.cursor >= len(ui.customers) {
		return core.Customer{}, false
	}
	return ui.customers[ui.cursor], true
}

func (ui *UI) refreshCustomers() {
	ui.customers = ui.store.Customers()
	ui.cursor = max(0, min(ui.cursor, len(ui.customers)-1))
}

func (ui *UI) delete(c core.Customer) tea.Cmd {
	return func() tea.Msg {
		err := ui.store.Dispatch(context.Background(), store.Delete{ID: c.ID})
		return deletedMsg{customer: c, err: err}
	}
}

func (ui *UI) View() string {
	if ui.quitting {
		return "\nBye!\n"
	}

	var b strings.Builder
	b.WriteString(ui.headerView())
	b.WriteString("\n\n")
	if ui.screen == screenForm {
		b.WriteString(ui.formView())
	} else {
		b.WriteString(ui.listView())
	}
	b.WriteString("\n")
	b.WriteString(ui.footerView())
	return b.String()
}

func (ui *UI) headerView() string {
	title := "Clientbook"
	if ui.screen == screenForm {
		if id, ok := ui.flow.ID(); ok {
			title = fmt.Sprintf("Clientbook · edit customer %v", id)
		} else {
			title = "Clientbook · new customer"
		}
	}
	return StyleTitle.Render(title)
}

func (ui *UI) listView() string {
	if len(ui.customers) == 0 {
		return StyleMuted.Render("No customers yet, press n to create one.") + "\n"
	}
	var b strings.Builder
	for i, c := range ui.customers {
		line := fmt.Sprintf("%s - %s", c.FullName, c.Email)
		if i == ui.cursor {
			b.WriteString(StyleSelected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (ui *UI) footerView() string {
	var b strings.Builder
	switch {
	case ui.err != nil:
		b.WriteString(StyleError.Render(fmt.Sprintf("[ERROR] %v", ui.err)))
		b.WriteString("\n")
	case len(ui.status) > 0:
		b.WriteString(StyleSuccess.Render(ui.status))
		b.WriteString("\n")
	}
	if ui.screen == screenForm {
		b.WriteString(ui.help.View(ui.formKeys))
	} else {
		b.WriteString(ui.help.View(ui.listKeys))
	}
	return b.String()
}
