package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	grantTypePassword     = "password"
	grantTypeRefreshToken = "refresh_token"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.UserServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(resp *api.TokenResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
}

// accessTokenInterceptor attaches the current access token to CurrentUser
// calls. When the server rejects it and a refresh token is held, the pair is
// renewed once and the call retried.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method != api.UserService_CurrentUser_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()
	if access == "" {
		return ErrNotLoggedIn
	}

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || refresh == "" {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated {
		return err
	}

	if _, rerr := s.Refresh(ctx); rerr != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func NewGophAuthClientService(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewUserServiceClient(conn)
	return nil
}

// Register returns the confirm token issued for the new account.
func (s *GRPCClient) Register(ctx context.Context, name, email, password string) (string, error) {
	req := &api.RegisterRequest{Name: name, Email: email, Password: password}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.ConfirmToken, nil
}

func (s *GRPCClient) Confirm(ctx context.Context, confirmToken string) error {
	_, err := s.client.Confirm(ctx, &api.ConfirmRequest{ConfirmToken: confirmToken})
	if err != nil {
		return s.mapError(err)
	}
	return nil
}

// Login runs the password grant and keeps the issued pair.
func (s *GRPCClient) Login(ctx context.Context, username, password string) (*api.TokenResponse, error) {
	req := &api.TokenRequest{GrantType: grantTypePassword, Username: username, Password: password}
	return s.grant(ctx, req)
}

// Refresh exchanges the held refresh token for a new pair.
func (s *GRPCClient) Refresh(ctx context.Context) (*api.TokenResponse, error) {
	_, refresh := s.tokens()
	if refresh == "" {
		return nil, ErrNotLoggedIn
	}
	req := &api.TokenRequest{GrantType: grantTypeRefreshToken, RefreshToken: refresh}
	return s.grant(ctx, req)
}

func (s *GRPCClient) grant(ctx context.Context, req *api.TokenRequest) (*api.TokenResponse, error) {
	resp, err := s.client.Token(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, ErrUnexpectedReply
	}
	s.setTokens(resp)
	return resp, nil
}

func (s *GRPCClient) CurrentUser(ctx context.Context) (*api.CurrentUserResponse, error) {
	resp, err := s.client.CurrentUser(ctx, &api.CurrentUserRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Status(ctx context.Context) (string, error) {
	resp, err := s.client.Status(ctx, &api.StatusRequest{})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Status, nil
}

// Logout forgets the held token pair. Nothing is sent to the server.
func (s *GRPCClient) Logout() {
	s.setTokens(&api.TokenResponse{})
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		// errors from interceptors, such as ErrNotLoggedIn, are returned as is
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		if st.Message() == common.ErrInvalidConfirmToken.Error() {
			return common.ErrInvalidConfirmToken
		}
		return common.ErrPermissionDenied
	case codes.AlreadyExists:
		return common.ErrUserExists
	case codes.InvalidArgument:
		if st.Message() == common.ErrUnsupportedGrantType.Error() {
			return common.ErrUnsupportedGrantType
		}
		return fmt.Errorf("%w: %s", ErrInvalidRequest, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
