package client

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/api"
)

type Client interface {
	Close() error
	Register(ctx context.Context, name, email, password string) (string, error)
	Confirm(ctx context.Context, confirmToken string) error
	Login(ctx context.Context, username, password string) (*api.TokenResponse, error)
	Refresh(ctx context.Context) (*api.TokenResponse, error)
	CurrentUser(ctx context.Context) (*api.CurrentUserResponse, error)
	Status(ctx context.Context) (string, error)
	Logout()
}
