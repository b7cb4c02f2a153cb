// Package http exposes UserService as the OAuth2-style HTTP endpoints
// /status and /oauth/*.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxBodyBytes      = 1 << 20
)

// UserService is the subset of services.UserService the façade calls.
type UserService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.RegisterResponse, error)
	ConfirmNewUser(ctx context.Context, confirmToken string) error
	Token(ctx context.Context, req services.TokenRequest) (*services.AccessTokenResponse, error)
	CurrentUser(ctx context.Context, accessToken string) (*services.CurrentUserResponse, error)
	Status(ctx context.Context) services.StatusResponse
}

type HTTPServer struct {
	address   string
	users     UserService
	logger    logging.Logger
	rateLimit int
}

// NewHTTPServer builds the façade. rateLimit is the number of token
// requests allowed per client IP per minute; zero disables limiting.
func NewHTTPServer(a string, l logging.Logger, us UserService, rateLimit int) *HTTPServer {
	return &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		users:     us,
		rateLimit: rateLimit,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
			}
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
