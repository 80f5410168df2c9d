package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/store"
	"github.com/prior-it/clientbook/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("err: missing file is not found", func(t *testing.T) {
		slot := store.NewFileSlot(filepath.Join(t.TempDir(), "customers.json"))
		_, err := slot.Load(ctx)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("ok: save and load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "customers.json")
		slot := store.NewFileSlot(path)
		tests.Check(slot.Save(ctx, []byte(`[{"id":1}]`)))

		data, err := slot.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(data))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "Temporary files should be cleaned up")
	})

	t.Run("ok: store survives a restart", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "customers.json")
		customer := tests.CustomerWithID(7)

		first := store.New(ctx, store.NewFileSlot(path))
		tests.Check(first.Dispatch(ctx, store.Add{Customer: customer}))

		second := store.New(ctx, store.NewFileSlot(path))
		assert.Equal(t, []core.Customer{customer}, second.Customers())
	})

	t.Run("ok: corrupt file does not prevent startup", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "customers.json")
		tests.Check(os.WriteFile(path, []byte("\x00\x01garbage"), 0o600))
		s := store.New(ctx, store.NewFileSlot(path))
		assert.Empty(t, s.Customers())
	})
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "customers.json")
	s := store.New(ctx, store.NewFileSlot(path))
	tests.Check(s.Dispatch(ctx, store.Add{Customer: tests.CustomerWithID(1)}))

	done := make(chan error)
	go func() {
		done <- store.Watch(ctx, s, path, 10*time.Millisecond)
	}()
	// Give the watcher some time to register the directory
	time.Sleep(50 * time.Millisecond)

	other := store.New(ctx, store.NewFileSlot(path))
	tests.Check(other.Dispatch(ctx, store.Add{Customer: tests.CustomerWithID(2)}))

	assert.Eventually(t, func() bool {
		return len(s.Customers()) == 2
	}, 2*time.Second, 10*time.Millisecond, "The watched store should pick up the external change")

	cancel()
	assert.NoError(t, <-done)
}
