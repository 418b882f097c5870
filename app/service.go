package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/chat"
	"github.com/goatplatform/edge-chat/internal/backend"
	"github.com/goatplatform/edge-chat/internal/configuration"
	"github.com/goatplatform/edge-chat/internal/llm"
	"github.com/goatplatform/edge-chat/internal/logging"
	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// App holds the dependencies shared by every command.
type App struct {
	Config       *configuration.Config
	Logger       *slog.Logger
	Store        *store.Store
	Backends     *llm.Registry
	Orchestrator *chat.Orchestrator

	logCloser io.Closer
}

// NewApp wires the application from its configuration. Backends failing to become ready are
// logged and stay unavailable; they do not prevent the application from starting.
func NewApp(ctx context.Context, config *configuration.Config) (*App, error) {
	logger, logCloser, err := logging.New(config.Logging)
	if err != nil {
		return nil, errors.Wrap(err, "instantiating logger")
	}
	a := &App{Config: config, Logger: logger, logCloser: logCloser}

	registry := schema.NewRegistry()
	if err := schema.RegisterSchemas(registry); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "registering schemas")
	}
	a.Store, err = store.New(ctx, &store.Opts{
		Driver:   config.Database.Driver,
		DSN:      config.Database.DSN,
		Registry: registry,
		Logger:   logger.With("component", "store"),
	})
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "opening store")
	}

	a.Backends, err = backend.NewRegistry(config.Backends)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "instantiating backends")
	}
	for id, err := range a.Backends.EnsureReady(ctx) {
		logger.Warn("backend is not ready", "backend", id, "error", err)
	}

	a.Orchestrator = chat.New(a.Store, a.Backends, chat.Opts{
		RequestTimeout: config.Timeout(),
		Logger:         logger,
	})
	return a, nil
}

// Close releases every resource held by the application.
func (a *App) Close() error {
	var firstErr error
	if a.Backends != nil {
		if err := a.Backends.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "closing store")
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "closing log file")
		}
	}
	return firstErr
}
