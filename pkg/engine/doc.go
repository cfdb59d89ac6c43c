// Package engine is the listener engine behind mockhandler: one Server is one
// HTTP or HTTPS listener serving the routes that registered plugins add.
//
// The lifecycle mirrors what the orchestrator in package handler drives:
//
//	srv := engine.New(engine.DefaultServerOptions(), log)
//	srv.Connection(engine.ConnectionOptions{Port: 9000, Label: engine.LabelHTTP})
//	if err := srv.Register(ctx, myPlugin); err != nil { ... }
//	if err := srv.Start(ctx); err != nil { ... }
//	defer srv.Stop(ctx)
//
// HTTPS listeners take PEM key and certificate bytes in ConnectionOptions.TLS
// and negotiate HTTP/2 via ALPN.
package engine
