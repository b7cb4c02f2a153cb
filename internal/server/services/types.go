package services

import "github.com/google/uuid"

// Grant types accepted by Token.
const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)

// Store liveness values reported by Status.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

type RegisterResponse struct {
	ConfirmToken string
}

// TokenRequest is a grant request. Username and Password are read for the
// password grant, RefreshToken for the refresh_token grant.
type TokenRequest struct {
	GrantType    string
	Username     string
	Password     string
	RefreshToken string
}

// AccessTokenResponse is returned by every successful grant.
// ExpiresIn is the access token lifetime in seconds.
type AccessTokenResponse struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64
	RefreshToken string
}

type CurrentUserResponse struct {
	ID    uuid.UUID
	Name  string
	Email string
}

type StatusResponse struct {
	Status string
}
