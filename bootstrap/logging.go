package bootstrap

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"
	"github.com/prior-it/clientbook/config"
)

// CreateLogger creates the application logger that writes to w and makes it the default logger.
func CreateLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var logger *slog.Logger
	level := cfg.Log.Level.ToSlog()
	addSource := cfg.Log.Verbose && cfg.App.Debug
	switch cfg.Log.Format {
	case config.LogFormatPlaintext:
		{
			logger = slog.New(tint.NewHandler(w, &tint.Options{
				Level:      level,
				AddSource:  addSource,
				TimeFormat: time.TimeOnly,
				NoColor:    w != os.Stdout && w != os.Stderr,
			}))
		}
	default:
		{
			logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level:     level,
				AddSource: addSource,
			}))
		}
	}
	slog.SetDefault(logger)
	return logger
}

// OpenLogFile opens the configured log file for appending, or returns io.Discard if no file was
// configured. The returned function closes the file.
func OpenLogFile(cfg *config.Config) (io.Writer, func(), error) {
	if len(cfg.Log.File) == 0 {
		return io.Discard, func() {}, nil
	}
	file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:mnd
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

// InitSentry initialises the Sentry client if it is enabled in the config.
func InitSentry(logger *slog.Logger, cfg *config.Config) {
	if !cfg.Sentry.Enabled {
		return
	}
	logger.Debug("Trying to initialise Sentry")
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Debug:            cfg.App.Debug,
		AttachStacktrace: true,
		SampleRate:       cfg.Sentry.SampleRate,
		EnableTracing:    true,
		TracesSampleRate: cfg.Sentry.TracesRate,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET /ping" || ctx.Span.Name == "GET /metrics" {
				return 0.0
			}
			return cfg.Sentry.TracesRate
		}),
		ProfilesSampleRate: cfg.Sentry.ProfilesRate,
		ServerName:         cfg.App.Name,
		Release:            cfg.App.Version,
		Environment:        string(cfg.App.Env),
	}); err != nil {
		logger.Error("Sentry initialization failed", "error", err)
	} else {
		logger.Debug("Sentry initialised")
	}
}
