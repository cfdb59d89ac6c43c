// Package testing runs mockhandler fixtures inside Go tests.
//
// Start constructs a handler, runs Before and registers After as test
// cleanup, so a fixture lives exactly as long as the test that created it:
//
//	func TestClient(t *testing.T) {
//	    fx := mocktesting.Serve(t, plugin.Route{
//	        Method: "GET",
//	        Path:   "/users/{id}",
//	        Body:   `{"id":"123"}`,
//	    })
//
//	    client := api.NewClient(fx.URL())
//	    ...
//	}
//
// Use Start directly for HTTPS, manual lifecycles or custom plugins:
//
//	fx := mocktesting.Start(t, handler.Options{
//	    MocksPort:      engine.AnyPort,
//	    MocksHTTPSPort: engine.AnyPort,
//	    KeyFile:        "testdata/server.key",
//	    CertFile:       "testdata/server.crt",
//	    MockServer:     myPlugin,
//	})
//
// Captured handler log lines are available from Fixture.Logs and are
// mirrored to the test log.
package testing
