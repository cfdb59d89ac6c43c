package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getmockd/mockhandler/pkg/engine"
	"github.com/getmockd/mockhandler/pkg/plugin"
)

// behavior scripts one fake listener, keyed by its connection label.
type behavior struct {
	registerErr error
	startErr    error
	stopErr     error
	startGate   chan struct{} // Start blocks until closed
	stopGate    chan struct{} // Stop blocks until closed
}

// fakeEngine records every call made on the listeners it creates.
type fakeEngine struct {
	mu        sync.Mutex
	behaviors map[string]behavior
	events    []string
	created   []*fakeListener
}

func newFakeEngine(b map[string]behavior) *fakeEngine {
	if b == nil {
		b = map[string]behavior{}
	}
	return &fakeEngine{behaviors: b}
}

func (f *fakeEngine) factory(defaults engine.ServerOptions, _ *slog.Logger) Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := &fakeListener{engine: f, defaults: defaults}
	f.created = append(f.created, l)
	return l
}

func (f *fakeEngine) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEngine) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeEngine) Created() []*fakeListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeListener(nil), f.created...)
}

func (f *fakeEngine) behaviorFor(label string) behavior {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.behaviors[label]
}

type fakeListener struct {
	engine   *fakeEngine
	defaults engine.ServerOptions

	mu      sync.Mutex
	conn    engine.ConnectionOptions
	plugin  plugin.Plugin
	running bool
}

func (l *fakeListener) Connection(conn engine.ConnectionOptions) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
}

func (l *fakeListener) Conn() engine.ConnectionOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func (l *fakeListener) label() string { return l.Conn().Label }

func (l *fakeListener) Register(_ context.Context, p plugin.Plugin) error {
	l.engine.record("register:" + l.label())
	l.mu.Lock()
	l.plugin = p
	l.mu.Unlock()
	return l.engine.behaviorFor(l.label()).registerErr
}

func (l *fakeListener) Start(_ context.Context) error {
	b := l.engine.behaviorFor(l.label())
	if b.startGate != nil {
		<-b.startGate
	}
	l.engine.record("start:" + l.label())
	if b.startErr != nil {
		return b.startErr
	}
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	return nil
}

func (l *fakeListener) Stop(_ context.Context) error {
	b := l.engine.behaviorFor(l.label())
	l.engine.record("stop-begin:" + l.label())
	if b.stopGate != nil {
		<-b.stopGate
	}
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
	l.engine.record("stop:" + l.label())
	return b.stopErr
}

func (l *fakeListener) URL() string {
	c := l.Conn()
	return fmt.Sprintf("%s://localhost:%d", c.Label, c.Port)
}

// lineLog collects sink output safely across goroutines.
type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) Log(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *lineLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// safeBuffer is a bytes.Buffer usable as a concurrent slog output.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
