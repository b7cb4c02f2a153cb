package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {

	if err := api.Validate(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.users.Register(ctx, services.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.RegisterResponse{ConfirmToken: result.ConfirmToken}, nil
}

func (s *GRPCServer) Confirm(ctx context.Context, req *api.ConfirmRequest) (*api.ConfirmResponse, error) {

	if err := api.Validate(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.users.ConfirmNewUser(ctx, req.ConfirmToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.ConfirmResponse{}, nil
}

func (s *GRPCServer) Token(ctx context.Context, req *api.TokenRequest) (*api.TokenResponse, error) {

	if err := api.Validate(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	tokens, err := s.users.Token(ctx, services.TokenRequest{
		GrantType:    req.GrantType,
		Username:     req.Username,
		Password:     req.Password,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.TokenResponse{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

func (s *GRPCServer) CurrentUser(ctx context.Context, req *api.CurrentUserRequest) (*api.CurrentUserResponse, error) {

	user, err := s.users.CurrentUser(ctx, accessTokenFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.CurrentUserResponse{Identifier: user.ID.String(), Name: user.Name, Email: user.Email}, nil
}

func (s *GRPCServer) Status(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {

	return &api.StatusResponse{Status: s.users.Status(ctx).Status}, nil

}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrPermissionDenied):
		return status.Error(codes.Unauthenticated, "permission denied")
	case errors.Is(err, common.ErrInvalidConfirmToken):
		return status.Error(codes.Unauthenticated, "invalid confirm token")
	case errors.Is(err, common.ErrUserExists):
		return status.Error(codes.AlreadyExists, "user exists")
	case errors.Is(err, common.ErrUnsupportedGrantType):
		return status.Error(codes.InvalidArgument, "unsupported grant type")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
