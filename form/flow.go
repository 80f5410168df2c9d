package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/store"
)

var (
	ErrInvalidDraft  = errors.New("customer draft is invalid")
	ErrUnknownField  = errors.New("unknown field")
	ErrNoSuchAddress = errors.New("no such address")
)

// DefaultDebounce is used when Options.Debounce is not set.
const DefaultDebounce = 300 * time.Millisecond

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Records is the part of the customer store that a flow needs.
type Records interface {
	Find(id core.CustomerID) (core.Customer, bool)
	NewID() core.CustomerID
	Dispatch(ctx context.Context, action store.Action) error
}

var _ Records = &store.Store{}

type Options struct {
	// Debounce is the time a field has to stay unchanged before it is looked up.
	Debounce time.Duration
	// DiscardStale drops lookup results whose field changed while the lookup was running.
	DiscardStale bool
	// TrackAddressesByKey applies postcode results to the address that was looked up, even if it
	// moved to another index in the meantime. By default results are applied by index.
	TrackAddressesByKey bool
	Logger              *slog.Logger
}

// Flow holds the state of a single create or edit session for one customer.
// All methods are safe for concurrent use.
type Flow struct {
	mu       sync.Mutex
	records  Records
	enricher core.Enricher
	opts     Options
	logger   *slog.Logger

	mode   Mode
	id     core.CustomerID
	draft  Draft
	keys   []string
	errors Errors

	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	inflight sync.WaitGroup

	taxIDDebouncer     func(func())
	postcodeDebouncers map[string]func(func())
	taxIDPending       int
	postcodePending    int
	listeners          []func()
}

// New starts a new flow. Passing a nil id creates a new customer, otherwise the customer with that
// id is edited. If no such customer exists, editing starts from an empty draft.
func New(records Records, enricher core.Enricher, id *core.CustomerID, opts Options) *Flow {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Flow{
		records:            records,
		enricher:           enricher,
		opts:               opts,
		logger:             logger,
		mode:               ModeCreate,
		draft:              EmptyDraft(),
		errors:             Errors{},
		ctx:                ctx,
		cancel:             cancel,
		taxIDDebouncer:     debounce.New(opts.Debounce),
		postcodeDebouncers: map[string]func(func()){},
	}
	if id != nil {
		f.mode = ModeEdit
		f.id = *id
		if customer, ok := records.Find(*id); ok {
			f.draft = DraftFrom(customer)
		} else {
			logger.Debug("Customer to edit does not exist, starting from an empty draft", "id", *id)
		}
	}
	f.keys = newKeys(len(f.draft.Addresses))
	return f
}

func newKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = uuid.NewString()
	}
	return keys
}

// SetField changes a top-level field of the draft.
// Changing the tax id to a valid value schedules a verification that can fill in the full name.
func (f *Flow) SetField(field Field, value string) error {
	f.mu.Lock()
	previous := f.draft.Get(field)
	if err := f.draft.set(field, value); err != nil {
		f.mu.Unlock()
		return err
	}
	if field == FieldTaxID && value != previous && core.IsValidTaxID(value) {
		f.taxIDDebouncer(func() { f.verifyTaxID(value) })
	}
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)
	return nil
}

// SetAddressField changes a field of the address at the specified index.
// Changing the postcode to a valid value schedules a lookup that can fill in state and city.
func (f *Flow) SetAddressField(index int, field AddressField, value string) error {
	f.mu.Lock()
	previous := f.draft.GetAddress(index, field)
	if err := f.draft.setAddress(index, field, value); err != nil {
		f.mu.Unlock()
		return err
	}
	if field == FieldPostcode && value != previous && core.IsValidPostcode(value) {
		key := f.keys[index]
		d, ok := f.postcodeDebouncers[key]
		if !ok {
			d = debounce.New(f.opts.Debounce)
			f.postcodeDebouncers[key] = d
		}
		d(func() { f.lookupPostcode(index, key, value) })
	}
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)
	return nil
}

// AddAddress appends an empty address, unless the draft already has core.MaxAddresses addresses.
func (f *Flow) AddAddress() bool {
	f.mu.Lock()
	if len(f.draft.Addresses) >= core.MaxAddresses {
		f.mu.Unlock()
		return false
	}
	f.draft.Addresses = append(f.draft.Addresses, core.EmptyAddress())
	f.keys = append(f.keys, uuid.NewString())
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)
	return true
}

// RemoveAddress removes the address at the specified index, unless it is the last remaining one.
func (f *Flow) RemoveAddress(index int) bool {
	f.mu.Lock()
	if len(f.draft.Addresses) <= core.MinAddresses || index < 0 || index >= len(f.draft.Addresses) {
		f.mu.Unlock()
		return false
	}
	delete(f.postcodeDebouncers, f.keys[index])
	f.draft.Addresses = slices.Delete(f.draft.Addresses, index, index+1)
	f.keys = slices.Delete(f.keys, index, index+1)
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)
	return true
}

// Load replaces the entire draft, without scheduling any lookups.
func (f *Flow) Load(d Draft) {
	f.mu.Lock()
	f.draft = d.Clone().normalised()
	f.keys = newKeys(len(f.draft.Addresses))
	f.postcodeDebouncers = map[string]func(func()){}
	f.errors = Errors{}
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)
}

// Submit validates the draft and commits it to the records.
// If the draft is invalid, ErrInvalidDraft is returned and Errors describes every violation.
func (f *Flow) Submit(ctx context.Context) (core.Customer, error) {
	f.mu.Lock()
	f.errors = Validate(f.draft)
	if len(f.errors) > 0 {
		listeners := f.listenerList()
		f.mu.Unlock()
		notify(listeners)
		return core.Customer{}, ErrInvalidDraft
	}

	var customer core.Customer
	var action store.Action
	if f.mode == ModeEdit {
		customer = f.draft.Customer(f.id)
		action = store.Update{Customer: customer}
	} else {
		customer = f.draft.Customer(f.records.NewID())
		action = store.Add{Customer: customer}
	}
	f.mu.Unlock()

	if err := f.records.Dispatch(ctx, action); err != nil {
		return core.Customer{}, fmt.Errorf("cannot save customer: %w", err)
	}

	f.mu.Lock()
	// Submitting again updates the customer that was just created.
	f.mode = ModeEdit
	f.id = customer.ID
	f.mu.Unlock()
	f.logger.Debug("Customer saved", "id", customer.ID, "action", action.Name())
	return customer, nil
}

// Enrich looks up the tax id and every valid postcode concurrently and applies the results to the
// draft. It returns once every lookup has resolved.
func (f *Flow) Enrich(ctx context.Context) {
	type postcodeJob struct {
		index    int
		key      string
		postcode string
	}

	f.mu.Lock()
	taxID := f.draft.TaxID
	var jobs []postcodeJob
	for i, address := range f.draft.Addresses {
		if core.IsValidPostcode(address.Postcode) {
			jobs = append(jobs, postcodeJob{index: i, key: f.keys[i], postcode: address.Postcode})
		}
	}
	f.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	if core.IsValidTaxID(taxID) {
		g.Go(func() error {
			result, err := f.enricher.VerifyTaxID(ctx, taxID)
			f.mu.Lock()
			f.applyTaxID(taxID, result, err)
			f.mu.Unlock()
			return nil
		})
	}
	for _, job := range jobs {
		g.Go(func() error {
			result, err := f.enricher.LookupPostcode(ctx, job.postcode)
			f.mu.Lock()
			f.applyPostcode(job.index, job.key, job.postcode, result, err)
			f.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	f.mu.Lock()
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)
}

func (f *Flow) verifyTaxID(taxID string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.inflight.Add(1)
	defer f.inflight.Done()
	f.taxIDPending++
	ctx := f.ctx
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)

	result, err := f.enricher.VerifyTaxID(ctx, taxID)

	f.mu.Lock()
	f.taxIDPending--
	f.applyTaxID(taxID, result, err)
	listeners = f.listenerList()
	f.mu.Unlock()
	notify(listeners)
}

func (f *Flow) lookupPostcode(index int, key, postcode string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.inflight.Add(1)
	defer f.inflight.Done()
	f.postcodePending++
	ctx := f.ctx
	listeners := f.listenerList()
	f.mu.Unlock()
	notify(listeners)

	result, err := f.enricher.LookupPostcode(ctx, postcode)

	f.mu.Lock()
	f.postcodePending--
	f.applyPostcode(index, key, postcode, result, err)
	listeners = f.listenerList()
	f.mu.Unlock()
	notify(listeners)
}

// applyTaxID must be called while holding the lock.
func (f *Flow) applyTaxID(requested string, result core.TaxIDVerification, err error) bool {
	switch {
	case f.closed:
		return false
	case err != nil:
		f.logger.Debug("Tax id verification failed", "error", err)
		return false
	case !result.IsValid:
		return false
	case f.opts.DiscardStale && f.draft.TaxID != requested:
		f.logger.Debug("Discarding stale tax id verification")
		return false
	}
	f.draft.FullName = result.FullName
	return true
}

// applyPostcode must be called while holding the lock.
func (f *Flow) applyPostcode(
	index int,
	key, requested string,
	result core.PostcodeDetails,
	err error,
) bool {
	switch {
	case f.closed:
		return false
	case err != nil:
		f.logger.Debug("Postcode lookup failed", "error", err)
		return false
	case !result.Matched():
		return false
	}

	target := index
	if f.opts.TrackAddressesByKey {
		target = slices.Index(f.keys, key)
	}
	if target < 0 || target >= len(f.draft.Addresses) {
		f.logger.Debug("Discarding postcode lookup for a removed address", "index", index)
		return false
	}
	if f.opts.DiscardStale && f.draft.Addresses[target].Postcode != requested {
		f.logger.Debug("Discarding stale postcode lookup", "index", target)
		return false
	}
	f.draft.Addresses[target].State = result.State[0].Name
	f.draft.Addresses[target].City = result.City[0].Name
	return true
}

// Close cancels all running lookups and waits for them to finish.
// Results that arrive after Close are discarded.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.listeners = nil
	f.mu.Unlock()
	f.cancel()
	f.inflight.Wait()
}

// OnChange registers a function that is called after every change to the draft, its errors or its
// pending lookups. Listeners are called without holding any lock.
func (f *Flow) OnChange(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.listeners = append(f.listeners, fn)
}

func (f *Flow) listenerList() []func() {
	if f.closed {
		return nil
	}
	return slices.Clone(f.listeners)
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

// Draft returns a copy of the current draft.
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Clone()
}

// Errors returns the violations that were found by the last Submit.
func (f *Flow) Errors() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.errors)
}

func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// ID returns the id of the customer that is being edited, the boolean is false in create mode.
func (f *Flow) ID() (core.CustomerID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.mode == ModeEdit
}

func (f *Flow) TaxIDPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taxIDPending > 0
}

func (f *Flow) PostcodePending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.postcodePending > 0
}
