package chatbot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"QueryChat/internal/backend"
	"QueryChat/internal/config"
	"QueryChat/internal/telemetry"
	"QueryChat/internal/tui"
	"QueryChat/internal/widget"
)

// ChatBot represents the main application
type ChatBot struct {
	config  config.Config
	logger  *slog.Logger
	logFile io.Closer
	tel     *telemetry.Telemetry
	events  *telemetry.EventLog
	client  *backend.Client
}

// NewChatBot creates a new ChatBot instance
func NewChatBot(cfg config.Config) (*ChatBot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logFile, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tel, err := telemetry.InitTelemetry(context.Background(), cfg.LogDir, !cfg.NoTrace)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	cb := &ChatBot{
		config:  cfg,
		logger:  logger,
		logFile: logFile,
		tel:     tel,
	}

	opts := []backend.Option{
		backend.WithTimeout(cfg.Timeout),
		backend.WithLogger(logger),
		backend.WithTelemetry(tel.Tracer, tel.Meter),
	}

	if path := cfg.EventsPath(); path != "" {
		events, err := telemetry.InitDB(path)
		if err != nil {
			cb.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		cb.events = events
		opts = append(opts, backend.WithRecorder(events))
	}

	cb.client = backend.NewClient(cfg.Endpoint, opts...)

	if cfg.Debug {
		logger.Debug("Debug mode enabled")
	}
	logger.Info("chatbot initialized", "config", cfg)

	return cb, nil
}

// Run starts the chat widget on the terminal, falling back to the line
// console when stdin or stdout is not a TTY
func (cb *ChatBot) Run(ctx context.Context) error {
	if cb.config.Plain || !isTerminal() {
		cb.logger.Info("starting console", "endpoint", cb.config.Endpoint)
		var events EventSource
		if cb.events != nil {
			events = cb.events
		}
		return RunConsole(ctx, os.Stdin, os.Stdout, cb.client, events,
			widget.WithLogger(cb.logger),
			widget.WithContext(ctx),
		)
	}

	cb.logger.Info("starting tui", "endpoint", cb.config.Endpoint)
	m, err := tui.NewModel(cb.client, cb.config.Endpoint,
		widget.WithLogger(cb.logger),
		widget.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	return tui.Run(ctx, m)
}

// Close flushes telemetry and releases the event ledger and log file
func (cb *ChatBot) Close() error {
	var firstErr error
	if cb.events != nil {
		if err := cb.events.Close(); err != nil {
			cb.logger.Error("failed to close event ledger", "error", err)
			firstErr = err
		}
	}
	if cb.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cb.tel.Shutdown(ctx); err != nil {
			cb.logger.Error("failed to shutdown telemetry", "error", err)
		}
	}
	if cb.logFile != nil {
		if err := cb.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
