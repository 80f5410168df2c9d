package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prior-it/clientbook/bootstrap"
	"github.com/prior-it/clientbook/components"
	"github.com/prior-it/clientbook/config"
	"github.com/prior-it/clientbook/locales"
	"github.com/prior-it/clientbook/web"
)

var (
	debug bool
	serve bool
)

func init() {
	flag.Usage = helpMessage
	flag.BoolVar(&debug, "d", false, "Debug mode")
	flag.BoolVar(&serve, "serve", false, "Serve the customer pages over HTTP instead of opening the terminal interface")
}

func helpMessage() {
	cmdName := os.Args[0]
	output := flag.CommandLine.Output()
	fmt.Fprintf(output, "Usage of %s:\n\n", cmdName)
	fmt.Fprintln(output, "Manage customer records from your terminal or your browser.")
	fmt.Fprintln(output, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Could not access the current working directory: %v\n", err)
	}
	cfg, err := config.Load(os.DirFS(cwd))
	if err != nil {
		log.Fatalf("Could not load the clientbook configuration: %v\n", err)
	}
	if debug {
		cfg.App.Debug = true
		cfg.Log.Level = config.LogLevelDebug
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve {
		err = runWeb(ctx, cfg)
	} else {
		err = runTerminal(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, StyleError.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func runWeb(ctx context.Context, cfg *config.Config) error {
	logger := bootstrap.CreateLogger(cfg, os.Stdout)
	bootstrap.InitSentry(logger, cfg)

	services, err := bootstrap.Start(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("cannot start services: %w", err)
	}
	app := &web.App{
		Store:    services.Store,
		Enricher: services.Enricher,
		Form:     services.FormOptions(),
		Gatherer: services.Registry,
		Logger:   logger,
		OnClose:  services.Close,
	}
	s := bootstrap.Web(app, cfg, logger, components.EmbedStatic, locales.FS)
	web.Routes(s, app)
	return s.Start(ctx, nil)
}

// The terminal interface owns stdout, so everything is logged to the configured log file instead.
func runTerminal(ctx context.Context, cfg *config.Config) error {
	w, closeLog, err := bootstrap.OpenLogFile(cfg)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}
	defer closeLog()
	logger := bootstrap.CreateLogger(cfg, w)
	bootstrap.InitSentry(logger, cfg)

	services, err := bootstrap.Start(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("cannot start services: %w", err)
	}
	defer services.Close(ctx)

	ui := NewUI(services.Store, services.Enricher, services.FormOptions())
	defer ui.Close()

	program := tea.NewProgram(
		ui,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
