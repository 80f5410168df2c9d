package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prior-it/clientbook/core"
)

// Store holds the authoritative list of customers.
// Every dispatched action is written through to the store's Slot before Dispatch returns, the
// in-memory list never diverges from the durable copy.
type Store struct {
	mu          sync.Mutex
	slot        Slot
	logger      *slog.Logger
	clock       func() time.Time
	state       State
	persisted   []byte
	lastID      core.CustomerID
	subscribers map[int]func(State)
	nextSub     int
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the clock that is used to generate new customer ids.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New creates a new store and hydrates it from the specified slot.
// This never fails: if the slot is empty, unreadable or corrupt the store starts out empty.
func New(ctx context.Context, slot Slot, opts ...Option) *Store {
	s := &Store{
		slot:        slot,
		logger:      slog.Default(),
		clock:       time.Now,
		subscribers: map[int]func(State){},
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := slot.Load(ctx)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.logger.Debug("No stored customers found, starting with an empty list")
		return s
	case err != nil:
		s.logger.Warn("Could not read stored customers, starting with an empty list", "error", err)
		return s
	}

	customers, err := decode(data)
	if err != nil {
		s.logger.Warn("Stored customers are corrupt, starting with an empty list", "error", err)
		return s
	}
	s.state = State{Customers: customers}
	s.persisted = data
	s.logger.Debug("Customers loaded from storage", "count", len(customers))
	return s
}

// Dispatch applies the action and persists the resulting customer list.
// If the list cannot be persisted, the action is rolled back and the error is returned.
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	s.mu.Lock()
	notify, err := s.apply(ctx, action)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	notify()
	return nil
}

// apply reduces and persists the action, s.mu must be held.
// The returned function notifies the subscribers and must be called after s.mu is released.
func (s *Store) apply(ctx context.Context, action Action) (func(), error) {
	next, changed := Reduce(s.state, action)
	data, err := encode(next.Customers)
	if err != nil {
		return nil, fmt.Errorf("cannot serialise customers after %s: %w", action.Name(), err)
	}
	if err := s.slot.Save(ctx, data); err != nil {
		return nil, fmt.Errorf("cannot persist customers after %s: %w", action.Name(), err)
	}
	s.state = next
	s.persisted = data
	subscribers := s.subscriberList()
	snapshot := next.Clone()

	return func() {
		if !changed {
			if add, ok := action.(Add); ok {
				s.logger.Warn("Not adding customer, its id is already taken", "id", add.Customer.ID)
			} else {
				s.logger.Debug("Store action did not match any customer", "action", action.Name())
			}
			return
		}
		s.logger.Debug("Store action applied", "action", action.Name(), "count", len(snapshot.Customers))
		for _, fn := range subscribers {
			fn(snapshot)
		}
	}, nil
}

// Reload reads the slot again and replaces all customers with its contents.
// Nothing happens if the slot still contains what this store last wrote to it, or if this store
// wrote to the slot while it was being read.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	base := s.persisted
	s.mu.Unlock()

	data, err := s.slot.Load(ctx)
	if errors.Is(err, core.ErrNotFound) {
		data = []byte("[]")
	} else if err != nil {
		return fmt.Errorf("cannot reload customers: %w", err)
	}
	if bytes.Equal(data, base) {
		return nil
	}

	customers, err := decode(data)
	if err != nil {
		s.logger.Warn("Ignoring corrupt customer data", "error", err)
		return err
	}

	s.mu.Lock()
	if !bytes.Equal(s.persisted, base) {
		s.mu.Unlock()
		s.logger.Debug("Skipping reload, customers were changed while reading them")
		return nil
	}
	notify, err := s.apply(ctx, SetAll{Customers: customers})
	s.mu.Unlock()
	if err != nil {
		return err
	}
	notify()
	return nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Customers returns a copy of all customers, in order.
func (s *Store) Customers() []core.Customer {
	return s.State().Customers
}

// Find returns a copy of the customer with the specified id.
func (s *Store) Find(id core.CustomerID) (core.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.state.index(id)
	if i < 0 {
		return core.Customer{}, false
	}
	return s.state.Customers[i].Clone(), true
}

// NewID generates a new customer id based on the current time.
// The generated id is guaranteed to be larger than every id in the store and every id previously
// generated by this store.
func (s *Store) NewID() core.CustomerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	floor := s.lastID
	for _, c := range s.state.Customers {
		floor = max(floor, c.ID)
	}
	id := core.NewCustomerID(s.clock())
	if id <= floor {
		id = floor + 1
	}
	s.lastID = id
	return id
}

// Subscribe registers a function that will be called with a snapshot of the state after every
// action that changed the state. Call the returned function to unsubscribe.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) subscriberList() []func(State) {
	list := make([]func(State), 0, len(s.subscribers))
	for i := range s.nextSub {
		if fn, ok := s.subscribers[i]; ok {
			list = append(list, fn)
		}
	}
	return list
}

func encode(customers []core.Customer) ([]byte, error) {
	if customers == nil {
		customers = []core.Customer{}
	}
	return json.Marshal(customers)
}

func decode(data []byte) ([]core.Customer, error) {
	var customers []core.Customer
	if err := json.Unmarshal(data, &customers); err != nil {
		return nil, errors.Join(core.ErrCorruptStorage, err)
	}
	return customers, nil
}
