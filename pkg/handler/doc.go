// Package handler coordinates ephemeral mock HTTP/HTTPS servers around a
// test run.
//
// New inspects Options once and fixes one of three modes:
//
//   - ManualMode when Options.MockServer is a MockServer with Start or Stop
//     set. The caller owns the server; Before and After call those
//     functions and nothing else. A Plugin given alongside is ignored.
//   - PluginMode when a plugin.Plugin is given, bare or inside a
//     plugin.Descriptor or MockServer. The Handler owns an HTTP listener,
//     plus an HTTPS listener when KeyFile and CertFile are set.
//   - InactiveMode otherwise. Before and After succeed without doing work.
//
// Typical use from a suite:
//
//	h, err := handler.New(handler.Options{
//	    MocksPort:  9000,
//	    MockServer: plugin.NewStatic("api", routes),
//	    Log:        func(line string) { t.Log(line) },
//	})
//	if err != nil { ... }
//	if err := h.Before(ctx, nil); err != nil { ... }
//	defer h.After(ctx, nil)
//
// In plugin mode Before starts the listeners concurrently and returns once
// every one has settled, with the first failure if any. After stops HTTP
// before HTTPS.
package handler
