package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prior-it/clientbook/bootstrap"
	"github.com/prior-it/clientbook/config"
	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/enrichment"
	"github.com/prior-it/clientbook/store"
	"github.com/prior-it/clientbook/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLogger(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	t.Run("ok: json", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := &config.Config{Log: config.LogConfig{Format: config.LogFormatJSON, Level: config.LogLevelWarn}}
		logger := bootstrap.CreateLogger(cfg, &buf)
		logger.Info("hidden")
		logger.Warn("shown", "customer", 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, logger, slog.Default())
	})

	t.Run("ok: plaintext", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := &config.Config{Log: config.LogConfig{Format: config.LogFormatPlaintext, Level: config.LogLevelDebug}}
		bootstrap.CreateLogger(cfg, &buf).Debug("plain message")
		assert.Contains(t, buf.String(), "plain message")
		assert.NotContains(t, buf.String(), "\x1b[", "colors should be disabled outside a terminal")
	})
}

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			Driver:        config.StorageDriverFile,
			Path:          filepath.Join(t.TempDir(), "customers.json"),
			Watch:         true,
			WatchDebounce: 10 * time.Millisecond,
		},
		Enrichment: config.EnrichmentConfig{Debounce: time.Second},
		Form:       config.FormConfig{DiscardStale: true},
	}
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("ok: file storage", func(t *testing.T) {
		cfg := fileConfig(t)
		services, err := bootstrap.Start(ctx, cfg, logger)
		require.NoError(t, err)
		defer services.Close(ctx)

		c := tests.CustomerWithID(services.Store.NewID())
		require.NoError(t, services.Store.Dispatch(ctx, store.Add{Customer: c}))
		_, err = os.Stat(cfg.Storage.Path)
		assert.NoError(t, err)

		assert.Equal(t, enrichment.Disabled{}, services.Enricher)
		opts := services.FormOptions()
		assert.Equal(t, time.Second, opts.Debounce)
		assert.True(t, opts.DiscardStale)
	})

	t.Run("ok: external changes are picked up", func(t *testing.T) {
		cfg := fileConfig(t)
		services, err := bootstrap.Start(ctx, cfg, logger)
		require.NoError(t, err)
		defer services.Close(ctx)

		c := tests.CustomerWithID(7)
		data, err := json.Marshal([]core.Customer{c})
		require.NoError(t, err)
		// Give the watcher some time to start
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, store.NewFileSlot(cfg.Storage.Path).Save(ctx, data))

		assert.Eventually(t, func() bool {
			_, ok := services.Store.Find(7)
			return ok
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("ok: enrichment client", func(t *testing.T) {
		cfg := fileConfig(t)
		cfg.Enrichment.Enabled = true
		cfg.Enrichment.BaseURL = "http://localhost"
		services, err := bootstrap.Start(ctx, cfg, logger)
		require.NoError(t, err)
		defer services.Close(ctx)
		assert.IsType(t, &enrichment.Client{}, services.Enricher)
	})

	t.Run("err: unreachable redis", func(t *testing.T) {
		cfg := fileConfig(t)
		cfg.Storage.Driver = config.StorageDriverRedis
		cfg.Storage.URL = "not a url"
		_, err := bootstrap.Start(ctx, cfg, logger)
		assert.Error(t, err)
	})
}
