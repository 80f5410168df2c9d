package store

import (
	"slices"

	"github.com/prior-it/clientbook/core"
)

// State is the full state of a customer store.
type State struct {
	Customers []core.Customer
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	customers := make([]core.Customer, len(s.Customers))
	for i, c := range s.Customers {
		customers[i] = c.Clone()
	}
	return State{Customers: customers}
}

func (s State) index(id core.CustomerID) int {
	return slices.IndexFunc(s.Customers, func(c core.Customer) bool {
		return c.ID == id
	})
}

// Action is a state transition that can be dispatched into a Store.
type Action interface {
	// Name returns a short description of the action, used for logging.
	Name() string
	apply(s State) (State, bool)
}

// SetAll replaces all customers at once. It is used to (re)hydrate a store from durable storage.
type SetAll struct {
	Customers []core.Customer
}

// Add appends a new customer. Adding a customer with an id that already exists does nothing.
type Add struct {
	Customer core.Customer
}

// Update replaces the customer with the same id, keeping its position.
// Updating a customer that does not exist does nothing.
type Update struct {
	Customer core.Customer
}

// Delete removes the customer with the specified id.
// Deleting a customer that does not exist does nothing.
type Delete struct {
	ID core.CustomerID
}

func (SetAll) Name() string { return "set_all" }
func (Add) Name() string    { return "add" }
func (Update) Name() string { return "update" }
func (Delete) Name() string { return "delete" }

func (a SetAll) apply(_ State) (State, bool) {
	return State{Customers: a.Customers}.Clone(), true
}

func (a Add) apply(s State) (State, bool) {
	if s.index(a.Customer.ID) >= 0 {
		return s, false
	}
	next := s.Clone()
	next.Customers = append(next.Customers, a.Customer.Clone())
	return next, true
}

func (a Update) apply(s State) (State, bool) {
	i := s.index(a.Customer.ID)
	if i < 0 {
		return s, false
	}
	next := s.Clone()
	next.Customers[i] = a.Customer.Clone()
	return next, true
}

func (a Delete) apply(s State) (State, bool) {
	i := s.index(a.ID)
	if i < 0 {
		return s, false
	}
	next := s.Clone()
	next.Customers = slices.Delete(next.Customers, i, i+1)
	return next, true
}

// Reduce returns the state that results from applying the action to s.
// The input state is never modified. The boolean result reports whether the action matched its
// precondition, a false value means the returned state equals the input.
func Reduce(s State, action Action) (State, bool) {
	return action.apply(s)
}
