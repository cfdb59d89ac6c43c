package handler

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mockhandler/pkg/engine"
	"github.com/getmockd/mockhandler/pkg/plugin"
	fixturetls "github.com/getmockd/mockhandler/pkg/tls"
)

func tlsFiles(t *testing.T) (keyFile, certFile string, cert *fixturetls.GeneratedCertificate) {
	t.Helper()
	dir := t.TempDir()
	keyFile = filepath.Join(dir, "server.key")
	certFile = filepath.Join(dir, "server.crt")
	cert, err := fixturetls.GenerateAndSave(nil, certFile, keyFile)
	require.NoError(t, err)
	return keyFile, certFile, cert
}

func newFakeHandler(t *testing.T, opts Options, fe *fakeEngine) (*Handler, *lineLog) {
	t.Helper()
	logs := &lineLog{}
	opts.Log = logs.Log
	h, err := New(opts, WithEngineFactory(fe.factory))
	require.NoError(t, err)
	return h, logs
}

func anyLineContains(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// ============================================================================
// Inactive Mode
// ============================================================================

func TestBefore_Inactive(t *testing.T) {
	fe := newFakeEngine(nil)
	h, logs := newFakeHandler(t, Options{MocksPort: 9000}, fe)

	require.IsType(t, InactiveMode{}, h.Mode())
	assert.NoError(t, h.Before(context.Background(), nil))
	assert.Empty(t, fe.Created(), "inactive mode must not create listeners")
	assert.True(t, anyLineContains(logs.Lines(), "not starting mock server"))

	assert.NoError(t, h.After(context.Background(), nil))
	assert.Empty(t, h.HTTPURL())
}

// ============================================================================
// Manual Mode
// ============================================================================

func TestManualMode(t *testing.T) {
	type ctxKey struct{}
	var gotStart, gotStop RunOptions
	var startCtx context.Context

	fe := newFakeEngine(nil)
	h, logs := newFakeHandler(t, Options{
		MocksPort: 9000,
		MockServer: MockServer{
			Plugin: examplePlugin,
			Start: func(ctx context.Context, opts RunOptions) error {
				startCtx = ctx
				gotStart = opts
				return nil
			},
			Stop: func(_ context.Context, opts RunOptions) error {
				gotStop = opts
				return errors.New("stop failed")
			},
		},
	}, fe)
	require.IsType(t, ManualMode{}, h.Mode())

	ctx := context.WithValue(context.Background(), ctxKey{}, "suite")
	opts := RunOptions{"env": "ci"}

	require.NoError(t, h.Before(ctx, opts))
	assert.Equal(t, opts, gotStart)
	assert.Equal(t, "suite", startCtx.Value(ctxKey{}))

	err := h.After(ctx, opts)
	assert.EqualError(t, err, "stop failed", "stop result is returned verbatim")
	assert.Equal(t, opts, gotStop)

	assert.Empty(t, fe.Created(), "manual mode must not create listeners")
	lines := logs.Lines()
	assert.True(t, anyLineContains(lines, "manual mock server startup"))
	assert.False(t, anyLineContains(lines, "started successfully"))
	assert.False(t, anyLineContains(lines, "mock server stopped"))
}

func TestManualMode_StartErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	h, err := New(Options{MockServer: MockServer{
		Start: func(context.Context, RunOptions) error { return boom },
	}})
	require.NoError(t, err)

	assert.Same(t, boom, h.Before(context.Background(), nil))
	// no stop function: nothing to do
	assert.NoError(t, h.After(context.Background(), nil))
}

func TestManualMode_StopOnly(t *testing.T) {
	stopped := false
	h, err := New(Options{MockServer: MockServer{
		Stop: func(context.Context, RunOptions) error { stopped = true; return nil },
	}})
	require.NoError(t, err)

	assert.NoError(t, h.Before(context.Background(), nil))
	assert.NoError(t, h.After(context.Background(), nil))
	assert.True(t, stopped)
}

// ============================================================================
// Plugin Mode: Before
// ============================================================================

func TestBefore_PluginHTTPOnly(t *testing.T) {
	fe := newFakeEngine(nil)
	h, logs := newFakeHandler(t, Options{MocksPort: 9000, MocksHTTPSPort: 9443, MockServer: examplePlugin}, fe)

	require.NoError(t, h.Before(context.Background(), nil))

	created := fe.Created()
	require.Len(t, created, 1, "HTTPS must not start without TLS material")
	conn := created[0].Conn()
	assert.Equal(t, 9000, conn.Port)
	assert.Equal(t, engine.LabelHTTP, conn.Label)
	assert.Nil(t, conn.TLS)
	assert.Same(t, examplePlugin, created[0].plugin)
	assert.True(t, created[0].defaults.Routes.CORS.Credentials)

	assert.Equal(t, "http://localhost:9000", h.HTTPURL())
	assert.Empty(t, h.HTTPSURL())

	lines := logs.Lines()
	assert.True(t, anyLineContains(lines, "using mock server plugin"))
	assert.True(t, anyLineContains(lines, "registered successfully"))
	assert.True(t, anyLineContains(lines, "started successfully"))
}

func TestBefore_PluginHTTPAndHTTPS(t *testing.T) {
	keyFile, certFile, cert := tlsFiles(t)
	fe := newFakeEngine(nil)
	h, _ := newFakeHandler(t, Options{
		MocksPort:      9000,
		MocksHTTPSPort: 9443,
		KeyFile:        keyFile,
		CertFile:       certFile,
		MockServer:     plugin.Descriptor{Plugin: examplePlugin},
	}, fe)

	require.NoError(t, h.Before(context.Background(), nil))

	created := fe.Created()
	require.Len(t, created, 2)
	byLabel := map[string]engine.ConnectionOptions{}
	for _, l := range created {
		byLabel[l.Conn().Label] = l.Conn()
		assert.Same(t, examplePlugin, l.plugin)
	}
	require.Contains(t, byLabel, engine.LabelHTTPS)
	https := byLabel[engine.LabelHTTPS]
	assert.Equal(t, 9443, https.Port)
	require.NotNil(t, https.TLS)
	assert.Equal(t, cert.KeyPEM, https.TLS.Key)
	assert.Equal(t, cert.CertPEM, https.TLS.Cert)
	assert.Equal(t, 9000, byLabel[engine.LabelHTTP].Port)
}

func TestBefore_WaitsForAllListeners(t *testing.T) {
	keyFile, certFile, _ := tlsFiles(t)
	gate := make(chan struct{})
	fe := newFakeEngine(map[string]behavior{
		engine.LabelHTTP:  {registerErr: errors.New("route conflict")},
		engine.LabelHTTPS: {startGate: gate},
	})
	h, _ := newFakeHandler(t, Options{
		MocksPort: 9000, MocksHTTPSPort: 9443,
		KeyFile: keyFile, CertFile: certFile,
		MockServer: examplePlugin,
	}, fe)

	done := make(chan error, 1)
	go func() { done <- h.Before(context.Background(), nil) }()

	select {
	case err := <-done:
		t.Fatalf("Before returned before HTTPS settled: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(gate)
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRegistration)
		assert.Contains(t, err.Error(), "route conflict")
	case <-time.After(5 * time.Second):
		t.Fatal("Before did not return after all listeners settled")
	}
	assert.Contains(t, fe.Events(), "start:https")
}

func TestBefore_StartsListenersConcurrently(t *testing.T) {
	keyFile, certFile, _ := tlsFiles(t)
	gate := make(chan struct{})
	fe := newFakeEngine(map[string]behavior{
		engine.LabelHTTP: {startGate: gate},
	})
	h, _ := newFakeHandler(t, Options{
		MocksPort: 9000, MocksHTTPSPort: 9443,
		KeyFile: keyFile, CertFile: certFile,
		MockServer: examplePlugin,
	}, fe)

	done := make(chan error, 1)
	go func() { done <- h.Before(context.Background(), nil) }()

	// HTTPS finishes starting while HTTP is still blocked.
	require.Eventually(t, func() bool {
		for _, e := range fe.Events() {
			if e == "start:https" {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
	assert.NotContains(t, fe.Events(), "start:http")

	select {
	case err := <-done:
		t.Fatalf("Before returned while HTTP was still starting: %v", err)
	default:
	}

	close(gate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Before did not return after HTTP started")
	}
	assert.Contains(t, fe.Events(), "start:http")
}

func TestBefore_LogsToSinkAndLogger(t *testing.T) {
	var buf safeBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logs := &lineLog{}
	fe := newFakeEngine(nil)

	h, err := New(Options{MocksPort: 9000, MockServer: examplePlugin, Log: logs.Log},
		WithEngineFactory(fe.factory), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, h.Before(context.Background(), nil))

	assert.True(t, anyLineContains(logs.Lines(), "started successfully"), "sink")
	assert.Contains(t, buf.String(), "started successfully", "logger")
	assert.Contains(t, buf.String(), "label=http")
}

func TestBefore_OneListenerFails(t *testing.T) {
	keyFile, certFile, _ := tlsFiles(t)

	tests := []struct {
		name      string
		behaviors map[string]behavior
		wantErr   error
		logLine   string
	}{
		{
			name:      "HTTP registration fails, HTTPS starts",
			behaviors: map[string]behavior{engine.LabelHTTP: {registerErr: errors.New("bad plugin")}},
			wantErr:   ErrRegistration,
			logLine:   "error in registering",
		},
		{
			name:      "HTTPS start fails, HTTP starts",
			behaviors: map[string]behavior{engine.LabelHTTPS: {startErr: errors.New("address in use")}},
			wantErr:   ErrStart,
			logLine:   "error in starting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := newFakeEngine(tt.behaviors)
			h, logs := newFakeHandler(t, Options{
				MocksPort: 9000, MocksHTTPSPort: 9443,
				KeyFile: keyFile, CertFile: certFile,
				MockServer: examplePlugin,
			}, fe)

			err := h.Before(context.Background(), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, anyLineContains(logs.Lines(), tt.logLine))

			// the listener that did start is left for After
			require.NoError(t, h.After(context.Background(), nil))
			assert.Contains(t, fe.Events(), "stop:http")
			assert.Contains(t, fe.Events(), "stop:https")
		})
	}
}

func TestBefore_NoRetry(t *testing.T) {
	fe := newFakeEngine(map[string]behavior{engine.LabelHTTP: {startErr: errors.New("denied")}})
	h, _ := newFakeHandler(t, Options{MocksPort: 80, MockServer: examplePlugin}, fe)

	require.ErrorIs(t, h.Before(context.Background(), nil), ErrStart)

	starts := 0
	for _, e := range fe.Events() {
		if e == "start:http" {
			starts++
		}
	}
	assert.Equal(t, 1, starts)
}

func TestBefore_AlreadyStarted(t *testing.T) {
	fe := newFakeEngine(nil)
	h, _ := newFakeHandler(t, Options{MocksPort: 9000, MockServer: examplePlugin}, fe)

	require.NoError(t, h.Before(context.Background(), nil))
	assert.ErrorIs(t, h.Before(context.Background(), nil), ErrAlreadyStarted)

	require.NoError(t, h.After(context.Background(), nil))
	assert.NoError(t, h.Before(context.Background(), nil), "Before may run again after After")
	assert.Len(t, fe.Created(), 2)
}

// ============================================================================
// Plugin Mode: After
// ============================================================================

func TestAfter_WithoutBefore(t *testing.T) {
	fe := newFakeEngine(nil)
	h, _ := newFakeHandler(t, Options{MocksPort: 9000, MockServer: examplePlugin}, fe)

	assert.NoError(t, h.After(context.Background(), nil))
	assert.Empty(t, fe.Events())
}

func TestAfter_StopsHTTPThenHTTPS(t *testing.T) {
	keyFile, certFile, _ := tlsFiles(t)
	httpsGate := make(chan struct{})
	fe := newFakeEngine(map[string]behavior{engine.LabelHTTPS: {stopGate: httpsGate}})
	h, logs := newFakeHandler(t, Options{
		MocksPort: 9000, MocksHTTPSPort: 9443,
		KeyFile: keyFile, CertFile: certFile,
		MockServer: examplePlugin,
	}, fe)
	require.NoError(t, h.Before(context.Background(), nil))

	done := make(chan error, 1)
	go func() { done <- h.After(context.Background(), nil) }()

	select {
	case err := <-done:
		t.Fatalf("After returned before HTTPS stopped: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	close(httpsGate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("After did not return")
	}

	var stops []string
	for _, e := range fe.Events() {
		if strings.HasPrefix(e, "stop") {
			stops = append(stops, e)
		}
	}
	assert.Equal(t, []string{"stop-begin:http", "stop:http", "stop-begin:https", "stop:https"}, stops)
	assert.True(t, anyLineContains(logs.Lines(), "mock server stopped"))
	assert.Empty(t, h.HTTPURL())
	assert.Empty(t, h.HTTPSURL())
}

func TestAfter_StopFailureStillStopsHTTPS(t *testing.T) {
	keyFile, certFile, _ := tlsFiles(t)
	fe := newFakeEngine(map[string]behavior{engine.LabelHTTP: {stopErr: errors.New("shutdown timeout")}})
	h, logs := newFakeHandler(t, Options{
		MocksPort: 9000, MocksHTTPSPort: 9443,
		KeyFile: keyFile, CertFile: certFile,
		MockServer: examplePlugin,
	}, fe)
	require.NoError(t, h.Before(context.Background(), nil))

	err := h.After(context.Background(), nil)
	assert.EqualError(t, err, "shutdown timeout")
	assert.Contains(t, fe.Events(), "stop:https")
	assert.True(t, anyLineContains(logs.Lines(), "error in stopping"))

	assert.NoError(t, h.After(context.Background(), nil), "handles are cleared after the first After")
}

// ============================================================================
// Real Engine
// ============================================================================

func TestRoundTrip_HTTP(t *testing.T) {
	h, err := New(Options{MocksPort: engine.AnyPort, MockServer: examplePlugin})
	require.NoError(t, err)

	require.NoError(t, h.Before(context.Background(), nil))
	url := h.HTTPURL()
	require.NotEmpty(t, url)

	resp, err := http.Get(url + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	require.NoError(t, h.After(context.Background(), nil))

	client := &http.Client{Timeout: time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	_, err = client.Get(url + "/ping")
	assert.Error(t, err, "listener should be closed after After")
}

func TestRoundTrip_HTTPAndHTTPS(t *testing.T) {
	keyFile, certFile, cert := tlsFiles(t)
	h, err := New(Options{
		MocksPort:      engine.AnyPort,
		MocksHTTPSPort: engine.AnyPort,
		KeyFile:        keyFile,
		CertFile:       certFile,
		MockServer:     examplePlugin,
	})
	require.NoError(t, err)

	require.NoError(t, h.Before(context.Background(), nil))
	defer func() { require.NoError(t, h.After(context.Background(), nil)) }()

	require.True(t, strings.HasPrefix(h.HTTPSURL(), "https://localhost:"))
	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: cert.CertPool(), MinVersion: tls.VersionTLS12},
	}}
	resp, err := client.Get(h.HTTPSURL() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	req, err := http.NewRequest(http.MethodGet, h.HTTPURL()+"/ping", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.test")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRealEngine_MissingPortIsConfigError(t *testing.T) {
	h, err := New(Options{MockServer: examplePlugin})
	require.NoError(t, err, "a missing port is not validated at construction")

	err = h.Before(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStart)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, engine.ErrNoPort)

	assert.NoError(t, h.After(context.Background(), nil))
}

func TestRealEngine_EmptyKeyFileFailsBefore(t *testing.T) {
	_, certFile, _ := tlsFiles(t)
	h, err := New(Options{
		MocksPort:      engine.AnyPort,
		MocksHTTPSPort: engine.AnyPort,
		KeyFile:        writeFile(t, t.TempDir(), "empty.key", ""),
		CertFile:       certFile,
		MockServer:     examplePlugin,
	})
	require.NoError(t, err)
	cfg := h.Config()
	require.True(t, cfg.TLSEnabled())

	err = h.Before(context.Background(), nil)
	require.Error(t, err, "HTTPS must not be skipped silently")
	assert.ErrorIs(t, err, ErrStart)
	assert.Contains(t, err.Error(), "(https)")

	assert.NoError(t, h.After(context.Background(), nil))
}

func TestRealEngine_BadTLSMaterialFailsBefore(t *testing.T) {
	dir := t.TempDir()
	h, err := New(Options{
		MocksPort:      engine.AnyPort,
		MocksHTTPSPort: engine.AnyPort,
		KeyFile:        writeFile(t, dir, "k", "not a key"),
		CertFile:       writeFile(t, dir, "c", "not a cert"),
		MockServer:     examplePlugin,
	})
	require.NoError(t, err)

	err = h.Before(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStart)
	assert.Contains(t, err.Error(), "(https)")

	// HTTP did start; After still tears it down
	assert.NotEmpty(t, h.HTTPURL())
	assert.NoError(t, h.After(context.Background(), nil))
}
