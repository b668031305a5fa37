package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"QueryChat/internal/session"
	"QueryChat/internal/telemetry"
	"QueryChat/internal/widget"
)

const statsLimit = 10

// EventSource lists recorded query events, newest first
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]telemetry.QueryEvent, error)
}

var (
	youStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0EA5E9")).Bold(true)
	botStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
)

// console is the line-oriented host. Each line read is the input value
// followed by an Enter key press. The mutex plays the part of the UI thread.
type console struct {
	mu     sync.Mutex
	out    io.Writer
	value  string
	closed bool

	events EventSource

	onClick func()
	onKey   func(key string)

	inflight sync.WaitGroup
}

func (c *console) Value() string     { return c.value }
func (c *console) SetValue(v string) { c.value = v }

func (c *console) AppendMessage(msg session.Message) {
	prefix := botStyle.Render("Bot:")
	if msg.Sender == session.SenderUser {
		prefix = youStyle.Render("You:")
	}
	fmt.Fprintf(c.out, "%s %s\n", prefix, msg.Text)
}

// ScrollToBottom is a no-op; the terminal scrolls on its own.
func (c *console) ScrollToBottom() {}

func (c *console) OnClick(handler func())              { c.onClick = handler }
func (c *console) OnKeyPress(handler func(key string)) { c.onKey = handler }

func (c *console) Go(fn func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn()
	}()
}

// Post runs fn under the console lock. Replies that land after the console
// has shut down are dropped.
func (c *console) Post(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	fn()
}

func (c *console) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// handleLine submits line through the Enter trigger unless it is one of the
// console commands.
func (c *console) handleLine(ctx context.Context, line string) (quit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	handled, quit := c.handleCommand(ctx, strings.TrimSpace(line))
	if handled {
		return quit
	}
	c.value = line
	c.onKey(widget.KeyEnter)
	return false
}

// handleCommand handles special commands. Unknown words starting with a
// slash are not commands and go out as queries.
func (c *console) handleCommand(ctx context.Context, cmd string) (handled, quit bool) {
	switch cmd {
	case "/quit", "/exit":
		return true, true
	case "/help":
		fmt.Fprintln(c.out, "Available commands:")
		fmt.Fprintln(c.out, "  /quit, /exit   - Exit")
		fmt.Fprintln(c.out, "  /stats         - Show recent query timings")
		fmt.Fprintln(c.out, "  /help          - Show this help message")
		fmt.Fprintln(c.out, "Anything else is sent as a query.")
		return true, false
	case "/stats":
		c.printStats(ctx)
		return true, false
	}
	return false, false
}

func (c *console) printStats(ctx context.Context) {
	if c.events == nil {
		fmt.Fprintln(c.out, "Query event ledger is disabled.")
		return
	}
	events, err := c.events.Recent(ctx, statsLimit)
	if err != nil {
		fmt.Fprintf(c.out, "Failed to load query events: %v\n", err)
		return
	}
	if len(events) == 0 {
		fmt.Fprintln(c.out, "No queries recorded yet.")
		return
	}

	var total time.Duration
	counts := map[string]int{}
	for _, ev := range events {
		total += ev.Duration
		counts[ev.Outcome]++
	}
	fmt.Fprintf(c.out, "Last %d queries: %d message, %d results, %d error, avg %s\n",
		len(events),
		counts[telemetry.OutcomeMessage],
		counts[telemetry.OutcomeResults],
		counts[telemetry.OutcomeError],
		(total / time.Duration(len(events))).Round(time.Millisecond),
	)
	for _, ev := range events {
		status := "---"
		if ev.StatusCode != 0 {
			status = fmt.Sprint(ev.StatusCode)
		}
		fmt.Fprintf(c.out, "  %s  %s  %-7s %s\n",
			ev.StartedAt.Local().Format("15:04:05"), status, ev.Outcome, ev.Duration.Round(time.Millisecond))
	}
}

// RunConsole runs the widget against line input from in, writing bubbles to
// out. events backs the /stats command and may be nil. It returns after in
// is exhausted (or /quit) and every request that was started has rendered
// its reply, or as soon as ctx is cancelled.
func RunConsole(ctx context.Context, in io.Reader, out io.Writer, querier widget.Querier, events EventSource, opts ...widget.Option) error {
	c := &console{out: out, events: events}
	defer c.close()

	w, err := widget.New(c, c, querier, c, opts...)
	if err != nil {
		return fmt.Errorf("failed to create widget: %w", err)
	}
	if err := w.Attach(c); err != nil {
		return fmt.Errorf("failed to attach widget: %w", err)
	}

	fmt.Fprintln(out, "=== QueryChat ===")
	fmt.Fprintln(out, "Type /help for commands, /quit to exit")

	// Reads block, so they run apart from the loop that watches ctx.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	var readErr error
read:
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				readErr = <-scanErr
				break read
			}
			if c.handleLine(ctx, line) {
				break read
			}
		}
	}

	idle := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
		return nil
	}

	if readErr != nil {
		return fmt.Errorf("failed to read input: %w", readErr)
	}
	return nil
}
