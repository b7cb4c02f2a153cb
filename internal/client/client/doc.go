// Package client talks to the gophauth gRPC endpoint on behalf of the CLI.
//
// GRPCClient keeps the token pair from the last successful grant, attaches
// the access token as "authorization: Bearer ..." metadata, refreshes it
// once when a protected call is rejected, and maps gRPC status codes back to
// the sentinel errors in package common so callers can use errors.Is.
package client
