// Package widget is the host-independent core of the chat widget: it reads
// the input, posts the query and appends user and bot bubbles to a display.
// Hosts supply the input, display, event source and UI loop.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"QueryChat/internal/backend"
	"QueryChat/internal/session"
)

// ErrorText is the bot bubble shown for any failed request
const ErrorText = "Error fetching results."

// KeyEnter is the key name that submits from the input
const KeyEnter = "enter"

var (
	ErrMissingElement  = errors.New("widget: missing element")
	ErrAlreadyAttached = errors.New("widget: already attached")
)

// Input is the text field the query is read from
type Input interface {
	Value() string
	SetValue(string)
}

// Display is the scrollable message container
type Display interface {
	AppendMessage(msg session.Message)
	ScrollToBottom()
}

// Events is the UI-event source triggers are registered on
type Events interface {
	OnClick(handler func())
	OnKeyPress(handler func(key string))
}

// Loop is the host's UI thread. Go runs fn off the UI thread and Post runs
// fn back on it. Every Display call happens inside Post or a UI handler.
type Loop interface {
	Go(fn func())
	Post(fn func())
}

// Querier sends a query to the backend
type Querier interface {
	Query(ctx context.Context, text string) (*backend.Response, error)
}

// Widget wires an input and a trigger to the query endpoint
type Widget struct {
	input   Input
	display Display
	querier Querier
	loop    Loop
	logger  *slog.Logger
	ctx     context.Context

	attached atomic.Bool
	pending  atomic.Int64
}

// Option configures a Widget
type Option func(*Widget)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Widget) { w.logger = logger }
}

// WithContext sets the context requests started by triggers run under
func WithContext(ctx context.Context) Option {
	return func(w *Widget) { w.ctx = ctx }
}

// New creates a widget. Every collaborator is required.
func New(input Input, display Display, querier Querier, loop Loop, opts ...Option) (*Widget, error) {
	switch {
	case input == nil:
		return nil, fmt.Errorf("%w: input", ErrMissingElement)
	case display == nil:
		return nil, fmt.Errorf("%w: display", ErrMissingElement)
	case querier == nil:
		return nil, fmt.Errorf("%w: querier", ErrMissingElement)
	case loop == nil:
		return nil, fmt.Errorf("%w: loop", ErrMissingElement)
	}

	w := &Widget{
		input:   input,
		display: display,
		querier: querier,
		loop:    loop,
		logger:  slog.Default(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Attach registers the submit triggers on events. It may only run once.
func (w *Widget) Attach(events Events) error {
	if events == nil {
		return fmt.Errorf("%w: event source", ErrMissingElement)
	}
	if !w.attached.CompareAndSwap(false, true) {
		return ErrAlreadyAttached
	}

	events.OnClick(func() {
		w.SubmitQuery(w.ctx)
	})
	events.OnKeyPress(func(key string) {
		if key == KeyEnter {
			w.SubmitQuery(w.ctx)
		}
	})
	return nil
}

// SubmitQuery sends the trimmed input value. Blank input is ignored and
// reports false. Earlier requests are never cancelled or deduplicated, so
// replies render in the order they complete.
func (w *Widget) SubmitQuery(ctx context.Context) bool {
	query := strings.TrimSpace(w.input.Value())
	if query == "" {
		return false
	}

	w.AddMessage(query, session.SenderUser)
	w.input.SetValue("")

	n := w.pending.Add(1)
	w.logger.Debug("query submitted", "length", len(query), "in_flight", n)

	w.loop.Go(func() {
		text := ErrorText
		resp, err := w.querier.Query(ctx, query)
		if err != nil {
			w.logger.Warn("query failed", "error", err)
		} else {
			text = resp.Text()
		}

		w.loop.Post(func() {
			w.pending.Add(-1)
			w.AddMessage(text, session.SenderBot)
		})
	})
	return true
}

// AddMessage appends a bubble for sender and scrolls to it
func (w *Widget) AddMessage(text string, sender session.Sender) {
	w.display.AppendMessage(session.NewMessage(text, sender))
	w.display.ScrollToBottom()
}

// Pending returns the number of requests still in flight
func (w *Widget) Pending() int {
	return int(w.pending.Load())
}
