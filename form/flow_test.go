package form_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/form"
	"github.com/prior-it/clientbook/store"
	"github.com/prior-it/clientbook/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// fakeEnricher answers lookups from fixed tables. Lookups for a value that has a gate block until
// the gate is closed or the lookup is canceled.
type fakeEnricher struct {
	mu            sync.Mutex
	taxIDs        map[string]core.TaxIDVerification
	postcodes     map[string]core.PostcodeDetails
	gates         map[string]chan struct{}
	err           error
	verifyCalls   []string
	postcodeCalls []string
}

func newFakeEnricher() *fakeEnricher {
	return &fakeEnricher{
		taxIDs:    map[string]core.TaxIDVerification{},
		postcodes: map[string]core.PostcodeDetails{},
		gates:     map[string]chan struct{}{},
	}
}

func (e *fakeEnricher) gate(value string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	gate := make(chan struct{})
	e.gates[value] = gate
	return gate
}

func (e *fakeEnricher) wait(ctx context.Context, value string) error {
	e.mu.Lock()
	gate := e.gates[value]
	err := e.err
	e.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (e *fakeEnricher) VerifyTaxID(ctx context.Context, taxID string) (core.TaxIDVerification, error) {
	e.mu.Lock()
	e.verifyCalls = append(e.verifyCalls, taxID)
	result := e.taxIDs[taxID]
	e.mu.Unlock()
	if err := e.wait(ctx, taxID); err != nil {
		return core.TaxIDVerification{}, err
	}
	return result, nil
}

func (e *fakeEnricher) LookupPostcode(ctx context.Context, postcode string) (core.PostcodeDetails, error) {
	e.mu.Lock()
	e.postcodeCalls = append(e.postcodeCalls, postcode)
	result, ok := e.postcodes[postcode]
	e.mu.Unlock()
	if err := e.wait(ctx, postcode); err != nil {
		return core.PostcodeDetails{}, err
	}
	if !ok {
		return core.PostcodeDetails{Status: "Error"}, nil
	}
	return result, nil
}

func (e *fakeEnricher) verified() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.verifyCalls)
}

func (e *fakeEnricher) lookedUp() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.postcodeCalls)
}

func details(state, city string) core.PostcodeDetails {
	return core.PostcodeDetails{
		Status: core.PostcodeStatusSuccess,
		State:  []core.Place{{Name: state}},
		City:   []core.Place{{Name: city}},
	}
}

func newStore(t *testing.T, customers ...core.Customer) (*store.Store, *store.MemorySlot) {
	t.Helper()
	slot := store.NewMemorySlot(nil)
	s := store.New(context.Background(), slot)
	for _, c := range customers {
		require.NoError(t, s.Dispatch(context.Background(), store.Add{Customer: c}))
	}
	return s, slot
}

func newFlow(
	t *testing.T,
	s *store.Store,
	enricher core.Enricher,
	id *core.CustomerID,
	opts form.Options,
) *form.Flow {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = time.Millisecond
	}
	f := form.New(s, enricher, id, opts)
	t.Cleanup(f.Close)
	return f
}

func TestFlowMode(t *testing.T) {
	t.Run("ok: create mode starts empty", func(t *testing.T) {
		s, _ := newStore(t)
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		assert.Equal(t, form.ModeCreate, f.Mode())
		assert.Equal(t, form.EmptyDraft(), f.Draft())
		_, ok := f.ID()
		assert.False(t, ok)
	})

	t.Run("ok: edit mode hydrates the customer", func(t *testing.T) {
		c := tests.CustomerWithID(7)
		s, _ := newStore(t, c)
		f := newFlow(t, s, newFakeEnricher(), &c.ID, form.Options{})
		assert.Equal(t, form.ModeEdit, f.Mode())
		assert.Equal(t, form.DraftFrom(c), f.Draft())
		id, ok := f.ID()
		assert.True(t, ok)
		assert.Equal(t, c.ID, id)
	})

	t.Run("ok: editing a missing customer starts empty", func(t *testing.T) {
		s, _ := newStore(t)
		id := core.CustomerID(99)
		f := newFlow(t, s, newFakeEnricher(), &id, form.Options{})
		assert.Equal(t, form.ModeEdit, f.Mode())
		assert.Equal(t, form.EmptyDraft(), f.Draft())
	})

	t.Run("ok: hydration does not verify the tax id", func(t *testing.T) {
		c := tests.CustomerWithID(7)
		s, _ := newStore(t, c)
		enricher := newFakeEnricher()
		newFlow(t, s, enricher, &c.ID, form.Options{})
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, enricher.verified())
	})
}

func TestFlowFields(t *testing.T) {
	s, _ := newStore(t)

	t.Run("ok: set fields", func(t *testing.T) {
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		require.NoError(t, f.SetField(form.FieldEmail, "a@b.co"))
		require.NoError(t, f.SetAddressField(0, form.FieldCity, "Pune"))
		assert.Equal(t, "a@b.co", f.Draft().Email)
		assert.Equal(t, "Pune", f.Draft().Addresses[0].City)
	})

	t.Run("err: unknown field", func(t *testing.T) {
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		assert.ErrorIs(t, f.SetField("nickname", "x"), form.ErrUnknownField)
		assert.ErrorIs(t, f.SetAddressField(0, "country", "x"), form.ErrUnknownField)
		assert.Equal(t, form.EmptyDraft(), f.Draft())
	})

	t.Run("err: address index out of range", func(t *testing.T) {
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		assert.ErrorIs(t, f.SetAddressField(1, form.FieldCity, "x"), form.ErrNoSuchAddress)
		assert.ErrorIs(t, f.SetAddressField(-1, form.FieldCity, "x"), form.ErrNoSuchAddress)
		assert.Equal(t, form.EmptyDraft(), f.Draft())
	})

	t.Run("ok: listeners are notified", func(t *testing.T) {
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		var mu sync.Mutex
		calls := 0
		f.OnChange(func() {
			mu.Lock()
			defer mu.Unlock()
			calls++
		})
		require.NoError(t, f.SetField(form.FieldMobile, "9"))
		f.AddAddress()
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, calls)
	})
}

func TestFlowAddresses(t *testing.T) {
	s, _ := newStore(t)

	t.Run("ok: add up to the maximum", func(t *testing.T) {
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		for range core.MaxAddresses - 1 {
			assert.True(t, f.AddAddress())
		}
		assert.False(t, f.AddAddress())
		assert.Len(t, f.Draft().Addresses, core.MaxAddresses)
	})

	t.Run("ok: remove keeps at least one address", func(t *testing.T) {
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		assert.False(t, f.RemoveAddress(0))
		assert.True(t, f.AddAddress())
		require.NoError(t, f.SetAddressField(1, form.FieldAddressLine1, "second"))
		assert.False(t, f.RemoveAddress(2))
		assert.True(t, f.RemoveAddress(0))
		assert.Equal(t, []core.Address{{AddressLine1: "second"}}, f.Draft().Addresses)
	})

	t.Run("ok: load normalises the address count", func(t *testing.T) {
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		f.Load(form.Draft{})
		assert.Len(t, f.Draft().Addresses, 1)

		f.Load(form.Draft{Addresses: make([]core.Address, core.MaxAddresses+3)})
		assert.Len(t, f.Draft().Addresses, core.MaxAddresses)
	})
}

func TestFlowSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("ok: create adds one customer", func(t *testing.T) {
		s, _ := newStore(t)
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		f.Load(validDraft())
		c, err := f.Submit(ctx)
		require.NoError(t, err)
		assert.Positive(t, int64(c.ID))
		assert.Equal(t, []core.Customer{c}, s.Customers())
	})

	t.Run("ok: submitting twice updates the created customer", func(t *testing.T) {
		s, _ := newStore(t)
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		f.Load(validDraft())
		first, err := f.Submit(ctx)
		require.NoError(t, err)
		require.NoError(t, f.SetField(form.FieldFullName, "Changed"))
		second, err := f.Submit(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, []core.Customer{second}, s.Customers())
	})

	t.Run("ok: edit keeps the id and position", func(t *testing.T) {
		a, b := tests.CustomerWithID(1), tests.CustomerWithID(2)
		s, _ := newStore(t, a, b)
		f := newFlow(t, s, newFakeEnricher(), &a.ID, form.Options{})
		require.NoError(t, f.SetField(form.FieldEmail, "new@example.com"))
		updated, err := f.Submit(ctx)
		require.NoError(t, err)
		assert.Equal(t, a.ID, updated.ID)
		a.Email = "new@example.com"
		assert.Equal(t, []core.Customer{a, b}, s.Customers())
	})

	t.Run("err: invalid mobile", func(t *testing.T) {
		s, slot := newStore(t)
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		d := validDraft()
		d.Mobile = "12345"
		f.Load(d)
		_, err := f.Submit(ctx)
		assert.ErrorIs(t, err, form.ErrInvalidDraft)
		assert.Equal(t, form.Errors{"mobile": form.MessageInvalidMobile}, f.Errors())
		assert.Empty(t, s.Customers())
		assert.Nil(t, slot.Bytes())
	})

	t.Run("ok: errors are cleared by a valid submit", func(t *testing.T) {
		s, _ := newStore(t)
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		_, err := f.Submit(ctx)
		require.ErrorIs(t, err, form.ErrInvalidDraft)
		assert.NotEmpty(t, f.Errors())
		f.Load(validDraft())
		_, err = f.Submit(ctx)
		require.NoError(t, err)
		assert.Empty(t, f.Errors())
	})

	t.Run("err: storage failure", func(t *testing.T) {
		s, slot := newStore(t)
		slot.Fail(errors.New("disk full"))
		f := newFlow(t, s, newFakeEnricher(), nil, form.Options{})
		f.Load(validDraft())
		_, err := f.Submit(ctx)
		assert.ErrorContains(t, err, "disk full")
		assert.Empty(t, s.Customers())
		assert.Equal(t, form.ModeCreate, f.Mode())
	})
}

func TestTaxIDWatcher(t *testing.T) {
	s, _ := newStore(t)
	taxID := tests.TaxID()

	t.Run("ok: verification fills in the full name", func(t *testing.T) {
		enricher := newFakeEnricher()
		enricher.taxIDs[taxID] = core.TaxIDVerification{IsValid: true, FullName: "Asha Rao"}
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetField(form.FieldFullName, "typed by hand"))
		require.NoError(t, f.SetField(form.FieldTaxID, taxID))
		assert.Eventually(t, func() bool { return f.Draft().FullName == "Asha Rao" }, waitFor, tick)
	})

	t.Run("ok: invalid tax ids are not verified", func(t *testing.T) {
		enricher := newFakeEnricher()
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetField(form.FieldTaxID, "ABCDE1234"))
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, enricher.verified())
	})

	t.Run("ok: unverified tax id leaves the draft alone", func(t *testing.T) {
		enricher := newFakeEnricher()
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetField(form.FieldFullName, "Kept"))
		require.NoError(t, f.SetField(form.FieldTaxID, taxID))
		assert.Eventually(t, func() bool { return len(enricher.verified()) == 1 }, waitFor, tick)
		assert.Eventually(t, func() bool { return !f.TaxIDPending() }, waitFor, tick)
		assert.Equal(t, "Kept", f.Draft().FullName)
	})

	t.Run("ok: lookup failures leave the draft alone", func(t *testing.T) {
		enricher := newFakeEnricher()
		enricher.taxIDs[taxID] = core.TaxIDVerification{IsValid: true, FullName: "Never"}
		enricher.err = errors.New("registry down")
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetField(form.FieldTaxID, taxID))
		assert.Eventually(t, func() bool { return len(enricher.verified()) == 1 }, waitFor, tick)
		assert.Eventually(t, func() bool { return !f.TaxIDPending() }, waitFor, tick)
		assert.Empty(t, f.Draft().FullName)
	})

	t.Run("ok: rapid changes are debounced", func(t *testing.T) {
		enricher := newFakeEnricher()
		f := newFlow(t, s, enricher, nil, form.Options{Debounce: 50 * time.Millisecond})
		values := []string{tests.TaxID(), tests.TaxID(), taxID}
		for _, v := range values {
			require.NoError(t, f.SetField(form.FieldTaxID, v))
		}
		assert.Eventually(t, func() bool { return len(enricher.verified()) > 0 }, waitFor, tick)
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, []string{taxID}, enricher.verified())
	})

	t.Run("ok: pending while the lookup runs", func(t *testing.T) {
		enricher := newFakeEnricher()
		gate := enricher.gate(taxID)
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetField(form.FieldTaxID, taxID))
		assert.Eventually(t, f.TaxIDPending, waitFor, tick)
		close(gate)
		assert.Eventually(t, func() bool { return !f.TaxIDPending() }, waitFor, tick)
	})
}

func TestStaleTaxIDResults(t *testing.T) {
	s, _ := newStore(t)
	first, second := tests.TaxID(), tests.TaxID()

	run := func(t *testing.T, opts form.Options) string {
		enricher := newFakeEnricher()
		enricher.taxIDs[first] = core.TaxIDVerification{IsValid: true, FullName: "First"}
		enricher.taxIDs[second] = core.TaxIDVerification{IsValid: true, FullName: "Second"}
		gate := enricher.gate(first)
		f := newFlow(t, s, enricher, nil, opts)

		require.NoError(t, f.SetField(form.FieldTaxID, first))
		assert.Eventually(t, func() bool { return len(enricher.verified()) == 1 }, waitFor, tick)
		require.NoError(t, f.SetField(form.FieldTaxID, second))
		assert.Eventually(t, func() bool { return f.Draft().FullName == "Second" }, waitFor, tick)

		close(gate)
		assert.Eventually(t, func() bool { return !f.TaxIDPending() }, waitFor, tick)
		return f.Draft().FullName
	}

	t.Run("ok: last resolved result wins", func(t *testing.T) {
		assert.Equal(t, "First", run(t, form.Options{}))
	})

	t.Run("ok: stale results are discarded", func(t *testing.T) {
		assert.Equal(t, "Second", run(t, form.Options{DiscardStale: true}))
	})
}

func TestPostcodeWatcher(t *testing.T) {
	s, _ := newStore(t)

	t.Run("ok: lookup fills in state and city", func(t *testing.T) {
		enricher := newFakeEnricher()
		enricher.postcodes["411001"] = details("Maharashtra", "Pune")
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetAddressField(0, form.FieldPostcode, "411001"))
		assert.Eventually(t, func() bool {
			a := f.Draft().Addresses[0]
			return a.State == "Maharashtra" && a.City == "Pune"
		}, waitFor, tick)
	})

	t.Run("ok: unmatched postcode leaves the address alone", func(t *testing.T) {
		enricher := newFakeEnricher()
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetAddressField(0, form.FieldState, "Goa"))
		require.NoError(t, f.SetAddressField(0, form.FieldPostcode, "999999"))
		assert.Eventually(t, func() bool { return len(enricher.lookedUp()) == 1 }, waitFor, tick)
		assert.Eventually(t, func() bool { return !f.PostcodePending() }, waitFor, tick)
		assert.Equal(t, core.Address{Postcode: "999999", State: "Goa"}, f.Draft().Addresses[0])
	})

	t.Run("ok: invalid postcodes are not looked up", func(t *testing.T) {
		enricher := newFakeEnricher()
		f := newFlow(t, s, enricher, nil, form.Options{})
		require.NoError(t, f.SetAddressField(0, form.FieldPostcode, "41100"))
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, enricher.lookedUp())
	})

	t.Run("ok: each address is debounced separately", func(t *testing.T) {
		enricher := newFakeEnricher()
		enricher.postcodes["411001"] = details("Maharashtra", "Pune")
		enricher.postcodes["560001"] = details("Karnataka", "Bengaluru")
		f := newFlow(t, s, enricher, nil, form.Options{Debounce: 20 * time.Millisecond})
		require.True(t, f.AddAddress())
		require.NoError(t, f.SetAddressField(0, form.FieldPostcode, "411001"))
		require.NoError(t, f.SetAddressField(1, form.FieldPostcode, "560001"))
		assert.Eventually(t, func() bool {
			d := f.Draft()
			return d.Addresses[0].City == "Pune" && d.Addresses[1].City == "Bengaluru"
		}, waitFor, tick)
	})
}

func TestPostcodeTargeting(t *testing.T) {
	s, _ := newStore(t)

	// Three addresses, the middle one is looked up and the first one is removed while the
	// lookup is running.
	run := func(t *testing.T, opts form.Options) []core.Address {
		enricher := newFakeEnricher()
		enricher.postcodes["411001"] = details("Maharashtra", "Pune")
		gate := enricher.gate("411001")
		f := newFlow(t, s, enricher, nil, opts)
		f.Load(form.Draft{Addresses: []core.Address{
			{AddressLine1: "first"},
			{AddressLine1: "second"},
			{AddressLine1: "third"},
		}})

		require.NoError(t, f.SetAddressField(1, form.FieldPostcode, "411001"))
		assert.Eventually(t, func() bool { return len(enricher.lookedUp()) == 1 }, waitFor, tick)
		require.True(t, f.RemoveAddress(0))
		close(gate)
		assert.Eventually(t, func() bool { return !f.PostcodePending() }, waitFor, tick)
		return f.Draft().Addresses
	}

	t.Run("ok: results are applied by index", func(t *testing.T) {
		assert.Equal(t, []core.Address{
			{AddressLine1: "second", Postcode: "411001"},
			{AddressLine1: "third", State: "Maharashtra", City: "Pune"},
		}, run(t, form.Options{}))
	})

	t.Run("ok: results follow the address", func(t *testing.T) {
		assert.Equal(t, []core.Address{
			{AddressLine1: "second", Postcode: "411001", State: "Maharashtra", City: "Pune"},
			{AddressLine1: "third"},
		}, run(t, form.Options{TrackAddressesByKey: true}))
	})

	t.Run("ok: results for a removed index are dropped", func(t *testing.T) {
		enricher := newFakeEnricher()
		enricher.postcodes["411001"] = details("Maharashtra", "Pune")
		gate := enricher.gate("411001")
		f := newFlow(t, s, enricher, nil, form.Options{TrackAddressesByKey: true})
		require.True(t, f.AddAddress())
		require.NoError(t, f.SetAddressField(1, form.FieldPostcode, "411001"))
		assert.Eventually(t, func() bool { return len(enricher.lookedUp()) == 1 }, waitFor, tick)
		require.True(t, f.RemoveAddress(1))
		close(gate)
		assert.Eventually(t, func() bool { return !f.PostcodePending() }, waitFor, tick)
		assert.Equal(t, []core.Address{{}}, f.Draft().Addresses)
	})
}

func TestFlowEnrich(t *testing.T) {
	s, _ := newStore(t)
	taxID := tests.TaxID()

	enricher := newFakeEnricher()
	enricher.taxIDs[taxID] = core.TaxIDVerification{IsValid: true, FullName: "Asha Rao"}
	enricher.postcodes["411001"] = details("Maharashtra", "Pune")
	enricher.postcodes["560001"] = details("Karnataka", "Bengaluru")

	f := newFlow(t, s, enricher, nil, form.Options{Debounce: time.Hour})
	f.Load(form.Draft{
		TaxID: taxID,
		Addresses: []core.Address{
			{Postcode: "411001"},
			{Postcode: "1234"},
			{Postcode: "560001"},
		},
	})
	f.Enrich(context.Background())

	d := f.Draft()
	assert.Equal(t, "Asha Rao", d.FullName)
	assert.Equal(t, "Pune", d.Addresses[0].City)
	assert.Empty(t, d.Addresses[1].City)
	assert.Equal(t, "Karnataka", d.Addresses[2].State)
	assert.ElementsMatch(t, []string{"411001", "560001"}, enricher.lookedUp())
}

func TestFlowClose(t *testing.T) {
	s, _ := newStore(t)
	taxID := tests.TaxID()

	t.Run("ok: close cancels running lookups", func(t *testing.T) {
		enricher := newFakeEnricher()
		enricher.taxIDs[taxID] = core.TaxIDVerification{IsValid: true, FullName: "Never"}
		enricher.gate(taxID)
		f := form.New(s, enricher, nil, form.Options{Debounce: time.Millisecond})
		require.NoError(t, f.SetField(form.FieldTaxID, taxID))
		assert.Eventually(t, f.TaxIDPending, waitFor, tick)

		done := make(chan struct{})
		go func() {
			f.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(waitFor):
			t.Fatal("Close did not return")
		}
		assert.Empty(t, f.Draft().FullName)
	})

	t.Run("ok: triggers after close do nothing", func(t *testing.T) {
		enricher := newFakeEnricher()
		f := form.New(s, enricher, nil, form.Options{Debounce: 20 * time.Millisecond})
		require.NoError(t, f.SetField(form.FieldTaxID, taxID))
		f.Close()
		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, enricher.verified())
	})

	t.Run("ok: close is idempotent", func(t *testing.T) {
		f := form.New(s, newFakeEnricher(), nil, form.Options{})
		f.Close()
		f.Close()
	})
}
