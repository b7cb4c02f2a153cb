// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration and the gRPC client into a small REPL that walks a
// user through registration, confirmation, login and token refresh, and can
// show the account behind the current access token.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or stdin is closed.
package cli
