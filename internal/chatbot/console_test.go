package chatbot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"QueryChat/internal/backend"
	"QueryChat/internal/telemetry"
	"QueryChat/internal/widget"
)

type scriptedQuerier struct {
	mu      sync.Mutex
	replies map[string]string
	queries []string
}

func (s *scriptedQuerier) Query(_ context.Context, text string) (*backend.Response, error) {
	s.mu.Lock()
	s.queries = append(s.queries, text)
	body, ok := s.replies[text]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("no route to host")
	}
	return backend.ParseResponse(200, []byte(body))
}

func TestRunConsole(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{
		"show all customers": `{"message":"2 customers"}`,
	}}

	in := strings.NewReader("show all customers\n   \nunknown\n")
	var out bytes.Buffer

	if err := RunConsole(context.Background(), in, &out, q, nil); err != nil {
		t.Fatalf("RunConsole() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"You: show all customers",
		"Bot: 2 customers",
		"You: unknown",
		"Bot: " + widget.ErrorText,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	if len(q.queries) != 2 {
		t.Errorf("queries = %v, want 2 (blank line skipped)", q.queries)
	}
}

func TestRunConsoleCommands(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{}}
	in := strings.NewReader("/help\n/quit\nnever sent\n")
	var out bytes.Buffer

	if err := RunConsole(context.Background(), in, &out, q, nil); err != nil {
		t.Fatalf("RunConsole() error = %v", err)
	}
	if !strings.Contains(out.String(), "Available commands") {
		t.Errorf("help not printed:\n%s", out.String())
	}
	if len(q.queries) != 0 {
		t.Errorf("queries = %v, want none after /quit", q.queries)
	}
}

func TestRunConsoleRequiresQuerier(t *testing.T) {
	err := RunConsole(context.Background(), strings.NewReader(""), &bytes.Buffer{}, nil, nil)
	if !errors.Is(err, widget.ErrMissingElement) {
		t.Errorf("RunConsole(nil querier) error = %v, want ErrMissingElement", err)
	}
}

func TestRunConsoleSendsUnknownSlashLines(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]string{
		"/orders": `{"message":"3 open orders"}`,
	}}
	var out bytes.Buffer

	if err := RunConsole(context.Background(), strings.NewReader("/orders\n"), &out, q, nil); err != nil {
		t.Fatalf("RunConsole() error = %v", err)
	}
	if len(q.queries) != 1 || q.queries[0] != "/orders" {
		t.Errorf("queries = %v, want [/orders]", q.queries)
	}
	if !strings.Contains(out.String(), "Bot: 3 open orders") {
		t.Errorf("reply not rendered:\n%s", out.String())
	}
}

func TestRunConsoleReturnsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- RunConsole(ctx, pr, io.Discard, &scriptedQuerier{}, nil)
	}()

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("RunConsole() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunConsole() still blocked on idle input after cancel")
	}
}

func TestRunConsoleCancelDoesNotWaitForHungRequest(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := blockingQuerier{release: release}

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- RunConsole(ctx, pr, io.Discard, q, nil)
	}()

	if _, err := io.WriteString(pw, "slow query\n"); err != nil {
		t.Fatalf("write input: %v", err)
	}
	pw.Close()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatal("RunConsole() waited on a hung request after cancel")
	}
}

type blockingQuerier struct {
	release chan struct{}
}

func (b blockingQuerier) Query(context.Context, string) (*backend.Response, error) {
	<-b.release
	return nil, errors.New("released")
}

type staticEvents []telemetry.QueryEvent

func (s staticEvents) Recent(_ context.Context, limit int) ([]telemetry.QueryEvent, error) {
	if len(s) > limit {
		return s[:limit], nil
	}
	return s, nil
}

func TestRunConsoleStats(t *testing.T) {
	events := staticEvents{
		{StartedAt: time.Now(), Duration: 30 * time.Millisecond, StatusCode: 200, Outcome: telemetry.OutcomeResults},
		{StartedAt: time.Now(), Duration: 10 * time.Millisecond, Outcome: telemetry.OutcomeError},
	}
	q := &scriptedQuerier{}
	var out bytes.Buffer

	if err := RunConsole(context.Background(), strings.NewReader("/stats\n"), &out, q, events); err != nil {
		t.Fatalf("RunConsole() error = %v", err)
	}
	if !strings.Contains(out.String(), "Last 2 queries: 0 message, 1 results, 1 error, avg 20ms") {
		t.Errorf("stats summary missing:\n%s", out.String())
	}
	if len(q.queries) != 0 {
		t.Errorf("queries = %v, want none", q.queries)
	}
}

func TestRunConsoleStatsWithoutLedger(t *testing.T) {
	var out bytes.Buffer
	if err := RunConsole(context.Background(), strings.NewReader("/stats\n"), &out, &scriptedQuerier{}, nil); err != nil {
		t.Fatalf("RunConsole() error = %v", err)
	}
	if !strings.Contains(out.String(), "ledger is disabled") {
		t.Errorf("disabled notice missing:\n%s", out.String())
	}
}
