package testing

import (
	"context"
	"sync"
	"testing"

	"github.com/getmockd/mockhandler/pkg/engine"
	"github.com/getmockd/mockhandler/pkg/handler"
	"github.com/getmockd/mockhandler/pkg/plugin"
)

// Fixture is a started handler bound to a test. After runs automatically
// when the test completes.
type Fixture struct {
	t       testing.TB
	handler *handler.Handler

	mu    sync.Mutex
	lines []string
	done  bool
}

// Start creates a handler from opts, runs Before and schedules After with
// t.Cleanup. Any failure fails the test immediately. Handler log lines are
// captured and also written to the test log. opts.Log, when set, still
// receives every line.
func Start(t testing.TB, opts handler.Options, hopts ...handler.Option) *Fixture {
	t.Helper()

	f := &Fixture{t: t}
	userLog := opts.Log
	opts.Log = func(line string) {
		f.record(line)
		if userLog != nil {
			userLog(line)
		}
	}

	h, err := handler.New(opts, hopts...)
	if err != nil {
		t.Fatalf("failed to create mock handler: %v", err)
	}
	f.handler = h

	// Registered before Before so listeners that did start are stopped
	// even when Before fails.
	t.Cleanup(f.stop)

	if err := h.Before(context.Background(), nil); err != nil {
		t.Fatalf("failed to start mock server: %v", err)
	}
	return f
}

// Serve starts an HTTP fixture on a random port serving routes.
func Serve(t testing.TB, routes ...plugin.Route) *Fixture {
	t.Helper()
	return Start(t, handler.Options{
		MocksPort:  engine.AnyPort,
		MockServer: plugin.NewStatic(t.Name(), routes),
	})
}

func (f *Fixture) record(line string) {
	f.mu.Lock()
	f.lines = append(f.lines, line)
	done := f.done
	f.mu.Unlock()
	if !done {
		f.t.Log(line)
	}
}

func (f *Fixture) stop() {
	if err := f.handler.After(context.Background(), nil); err != nil {
		f.t.Errorf("failed to stop mock server: %v", err)
	}
	f.mu.Lock()
	f.done = true
	f.mu.Unlock()
}

// URL returns the base URL of the HTTP listener, or "" when none is running.
func (f *Fixture) URL() string {
	return f.handler.HTTPURL()
}

// HTTPSURL returns the base URL of the HTTPS listener, or "".
func (f *Fixture) HTTPSURL() string {
	return f.handler.HTTPSURL()
}

// Handler returns the underlying handler for advanced use cases.
func (f *Fixture) Handler() *handler.Handler {
	return f.handler
}

// Logs returns the log lines captured so far.
func (f *Fixture) Logs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}
