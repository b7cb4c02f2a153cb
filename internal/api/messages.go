package api

import (
	"github.com/go-playground/validator/v10"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	ConfirmToken string `json:"confirm_token"`
}

type ConfirmRequest struct {
	ConfirmToken string `json:"confirm_token" validate:"required"`
}

type ConfirmResponse struct{}

// TokenRequest carries either a password grant or a refresh_token grant.
type TokenRequest struct {
	GrantType    string `json:"grant_type" validate:"required"`
	Username     string `json:"username,omitempty" validate:"required_if=GrantType password"`
	Password     string `json:"password,omitempty" validate:"required_if=GrantType password"`
	RefreshToken string `json:"refresh_token,omitempty" validate:"required_if=GrantType refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// CurrentUserRequest is empty: the access token travels in the
// "authorization" metadata entry.
type CurrentUserRequest struct{}

type CurrentUserResponse struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Status string `json:"status"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of a request message.
func Validate(req any) error {
	return validate.Struct(req)
}
