// Package common contains shared constants and sentinel errors used across
// gophauth components.
package common

// AuthorizationHeaderName is the gRPC metadata / HTTP header key carrying
// the bearer access token.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the access token in the authorization value.
const BearerPrefix = "Bearer "

// TokenTypeBearer is the OAuth 2.0 token_type returned with every grant.
const TokenTypeBearer = "bearer"
