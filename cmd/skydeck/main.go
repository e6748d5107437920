package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"skydeck/internal/config"
	"skydeck/internal/domain/session"
	"skydeck/internal/domain/thread"
	"skydeck/internal/infrastructure/backend"
	"skydeck/internal/infrastructure/logger"
	"skydeck/internal/infrastructure/statestore"
	"skydeck/internal/ui"
)

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := statestore.Open(cfg.StatePath, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close state store")
		}
	}()

	agent := backend.New(cfg.BackendURL, cfg.RequestTimeout)
	threads := thread.NewManager(store)

	program := tea.NewProgram(ui.NewModel(), tea.WithContext(ctx))

	sess := session.New(store, agent, threads, ui.NewDispatcher(program), session.Options{
		MaxProviders:  cfg.MaxProviders,
		WaitTimeoutMs: cfg.ProviderWaitMs,
	}, log)

	// The controller reaches the model through the event loop; rehydration
	// runs as its first command, before any user action can start.
	go program.Send(ui.SessionReadyMsg{Controller: sess})

	log.Info().Str("backend", cfg.BackendURL).Str("state", cfg.StatePath).Msg("starting")
	if _, err := program.Run(); err != nil {
		log.Error().Err(err).Msg("ui stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	sess.Close(shutdownCtx)

	log.Info().Msg("exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
