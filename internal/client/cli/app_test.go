package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	registered map[string]string // name -> password
	confirmed  map[string]bool
	tokens     map[string]string // confirm token -> name

	loggedIn  bool
	hadDL     bool
	closed    bool
	statusErr error
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{registered: map[string]string{}, confirmed: map[string]bool{}, tokens: map[string]string{}}
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func (f *fakeClient) Register(ctx context.Context, name, email, password string) (string, error) {
	_, f.hadDL = ctx.Deadline()
	if _, ok := f.registered[name]; ok {
		return "", common.ErrUserExists
	}
	f.registered[name] = password
	tok := "ct-" + name
	f.tokens[tok] = name
	return tok, nil
}

func (f *fakeClient) Confirm(_ context.Context, token string) error {
	name, ok := f.tokens[token]
	if !ok {
		return common.ErrInvalidConfirmToken
	}
	f.confirmed[name] = true
	return nil
}

func (f *fakeClient) Login(_ context.Context, username, password string) (*api.TokenResponse, error) {
	if pw, ok := f.registered[username]; !ok || pw != password || !f.confirmed[username] {
		return nil, common.ErrPermissionDenied
	}
	f.loggedIn = true
	return &api.TokenResponse{AccessToken: "a", RefreshToken: "r", TokenType: "bearer", ExpiresIn: 3600}, nil
}

func (f *fakeClient) Refresh(context.Context) (*api.TokenResponse, error) {
	if !f.loggedIn {
		return nil, client.ErrNotLoggedIn
	}
	return &api.TokenResponse{AccessToken: "a2", RefreshToken: "r2", TokenType: "bearer", ExpiresIn: 3600}, nil
}

func (f *fakeClient) CurrentUser(context.Context) (*api.CurrentUserResponse, error) {
	if !f.loggedIn {
		return nil, client.ErrNotLoggedIn
	}
	return &api.CurrentUserResponse{Identifier: "id-1", Name: "alice", Email: "alice@example.com"}, nil
}

func (f *fakeClient) Status(context.Context) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return "up", nil
}

func (f *fakeClient) Logout() { f.loggedIn = false }

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := getPassword
	getPassword = func(w io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = old })
}

func testApp(fc *fakeClient, input string) (*App, *bytes.Buffer) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	out := &bytes.Buffer{}
	return newApp(cfg, fc, strings.NewReader(input), out), out
}

func TestApp_FullSession(t *testing.T) {
	stubPassword(t, "pw1")
	fc := newFakeClient()

	a, out := testApp(fc, strings.Join([]string{
		"register", "alice", "alice@example.com",
		"confirm", "",
		"login", "alice",
		"me",
		"refresh",
		"logout",
		"me",
		"exit",
	}, "\n")+"\n")

	require.NoError(t, a.Run(context.Background()))

	s := out.String()
	assert.Contains(t, s, "Confirm token:\nct-alice")
	assert.Contains(t, s, "Account confirmed")
	assert.Contains(t, s, "Login successful, access token valid for 3600s")
	assert.Contains(t, s, "name:  alice")
	assert.Contains(t, s, "Tokens refreshed")
	assert.Contains(t, s, "Logged out")
	assert.Contains(t, s, "Error: not logged in, use 'login' first")
	assert.True(t, fc.closed)
	assert.True(t, fc.hadDL, "server calls carry the request timeout")
	assert.False(t, a.isLoggedIn())
}

func TestApp_RegisterDuplicate(t *testing.T) {
	stubPassword(t, "pw1")
	fc := newFakeClient()
	fc.registered["alice"] = "old"

	a, _ := testApp(fc, "alice\nalice@example.com\n")

	err := a.Register(context.Background())
	assert.ErrorIs(t, err, common.ErrUserExists)
	assert.Empty(t, a.lastConfirmToken)
	assert.Equal(t, "old", fc.registered["alice"])
}

func TestApp_LoginUnconfirmed(t *testing.T) {
	stubPassword(t, "pw1")
	fc := newFakeClient()
	fc.registered["alice"] = "pw1"

	a, _ := testApp(fc, "alice\n")

	err := a.Login(context.Background())
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "", a.getStatus())
}

func TestApp_ConfirmWithoutToken(t *testing.T) {
	a, _ := testApp(newFakeClient(), "\n")

	err := a.Confirm(context.Background())
	assert.Error(t, err)
}

func TestApp_ConfirmExplicitToken(t *testing.T) {
	fc := newFakeClient()
	a, _ := testApp(fc, "garbage\n")

	err := a.Confirm(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidConfirmToken)
}

func TestApp_PasswordError(t *testing.T) {
	old := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return nil, errors.New("no tty") }
	t.Cleanup(func() { getPassword = old })

	a, _ := testApp(newFakeClient(), "alice\n")
	assert.Error(t, a.Login(context.Background()))
}

func TestApp_Status(t *testing.T) {
	fc := newFakeClient()
	a, out := testApp(fc, "")

	require.NoError(t, a.Status(context.Background()))
	assert.Contains(t, out.String(), "Server status: up")

	fc.statusErr = common.ErrUnavailable
	assert.ErrorIs(t, a.Status(context.Background()), common.ErrUnavailable)
}

func TestApp_StatusLine(t *testing.T) {
	a, _ := testApp(newFakeClient(), "")
	a.userName = "alice"
	assert.Equal(t, "(alice)", a.getStatus())
}

func TestNewApp(t *testing.T) {
	cfg := &config.Config{ServerEndpointAddr: "127.0.0.1:1", RequestTimeout: time.Second}
	a, err := NewApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NoError(t, a.api.Close())
}
