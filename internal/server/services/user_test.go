package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/revocations"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

var cheapParams = password.Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
		ConfirmTokenValidityDuration: 48 * time.Hour,
		StoreTimeout:                 time.Second,
	}
}

func newService(t *testing.T, db dbx.Conn, rm repomanager.RepositoryManager, opts ...Option) *UserService {
	t.Helper()
	opts = append([]Option{WithHasher(password.NewHasher(cheapParams))}, opts...)
	s, err := NewUserService(db, rm, testConfig(), logging.NewNopLogger(), opts...)
	require.NoError(t, err)
	return s
}

func newMemoryService(t *testing.T, opts ...Option) (*UserService, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	return newService(t, dbx.NewMemoryConn(), rm, opts...), rm
}

func registerConfirmed(t *testing.T, s *UserService, name, pass string) {
	t.Helper()
	ctx := context.Background()
	res, err := s.Register(ctx, RegisterRequest{Name: name, Email: name + "@example.com", Password: pass})
	require.NoError(t, err)
	require.NoError(t, s.ConfirmNewUser(ctx, res.ConfirmToken))
}

func TestNewUserService_BadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey = ""
	_, err := NewUserService(dbx.NewMemoryConn(), repomanager.NewMemoryRepositoryManager(), cfg, logging.NewNopLogger())
	require.Error(t, err)

	cfg = testConfig()
	cfg.ConfirmTokenValidityDuration = 0
	_, err = NewUserService(dbx.NewMemoryConn(), repomanager.NewMemoryRepositoryManager(), cfg, logging.NewNopLogger())
	require.Error(t, err)
}

func TestAliceScenario(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, RegisterRequest{Name: "alice", Email: "a@x.io", Password: "pw1"})
	require.NoError(t, err)
	require.NotEmpty(t, reg.ConfirmToken)

	// unconfirmed users cannot log in
	_, err = s.PasswordGrant(ctx, "alice", "pw1")
	require.ErrorIs(t, err, common.ErrPermissionDenied)

	require.NoError(t, s.ConfirmNewUser(ctx, reg.ConfirmToken))

	grant, err := s.PasswordGrant(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", grant.TokenType)
	assert.EqualValues(t, 3600, grant.ExpiresIn)
	assert.NotEmpty(t, grant.AccessToken)
	assert.NotEmpty(t, grant.RefreshToken)

	me, err := s.CurrentUser(ctx, grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Name)
	assert.Equal(t, "a@x.io", me.Email)
	assert.NotEqual(t, uuid.Nil, me.ID)

	_, err = s.PasswordGrant(ctx, "alice", "wrong")
	require.ErrorIs(t, err, common.ErrPermissionDenied)

	refreshed, err := s.RefreshGrant(ctx, grant.RefreshToken)
	require.NoError(t, err)

	me2, err := s.CurrentUser(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, me.ID, me2.ID)
}

func TestTokenSubstitutionRejected(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, RegisterRequest{Name: "dave", Email: "d@x.io", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, s.ConfirmNewUser(ctx, reg.ConfirmToken))

	grant, err := s.PasswordGrant(ctx, "dave", "pw")
	require.NoError(t, err)

	_, err = s.CurrentUser(ctx, grant.RefreshToken)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
	_, err = s.CurrentUser(ctx, reg.ConfirmToken)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	_, err = s.RefreshGrant(ctx, grant.AccessToken)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
	_, err = s.RefreshGrant(ctx, reg.ConfirmToken)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	assert.ErrorIs(t, s.ConfirmNewUser(ctx, grant.AccessToken), common.ErrInvalidConfirmToken)
	assert.ErrorIs(t, s.ConfirmNewUser(ctx, grant.RefreshToken), common.ErrInvalidConfirmToken)
	assert.ErrorIs(t, s.ConfirmNewUser(ctx, "garbage"), common.ErrInvalidConfirmToken)
}

func TestRegister_DuplicateLeavesExistingUntouched(t *testing.T) {
	s, rm := newMemoryService(t)
	ctx := context.Background()

	registerConfirmed(t, s, "bob", "original")

	_, err := s.Register(ctx, RegisterRequest{Name: "bob", Email: "evil@x.io", Password: "hijack"})
	require.ErrorIs(t, err, common.ErrUserExists)

	assert.Equal(t, 1, rm.UserStore().Len())

	_, err = s.PasswordGrant(ctx, "bob", "original")
	require.NoError(t, err)
	_, err = s.PasswordGrant(ctx, "bob", "hijack")
	require.ErrorIs(t, err, common.ErrPermissionDenied)

	u, err := rm.UserStore().GetUserByName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.True(t, u.Confirmed)
}

func TestRegister_ConcurrentSameName(t *testing.T) {
	s, rm := newMemoryService(t)
	ctx := context.Background()

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Register(ctx, RegisterRequest{Name: "carol", Email: "c@x.io", Password: "pw"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, common.ErrUserExists)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, rm.UserStore().Len())
}

func TestRegister_SameNameAfterConfirm(t *testing.T) {
	s, _ := newMemoryService(t)
	registerConfirmed(t, s, "erin", "pw")

	_, err := s.Register(context.Background(), RegisterRequest{Name: "erin", Email: "e@x.io", Password: "pw"})
	assert.ErrorIs(t, err, common.ErrUserExists)
}

func TestConfirmNewUser_Idempotent(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, RegisterRequest{Name: "frank", Email: "f@x.io", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, s.ConfirmNewUser(ctx, reg.ConfirmToken))
	require.NoError(t, s.ConfirmNewUser(ctx, reg.ConfirmToken))
}

func TestConfirmNewUser_UnknownSubject(t *testing.T) {
	s, _ := newMemoryService(t)

	tok, err := s.codec.Encode(auth.KindConfirm, uuid.New())
	require.NoError(t, err)

	assert.ErrorIs(t, s.ConfirmNewUser(context.Background(), tok), common.ErrInvalidConfirmToken)
}

func TestPasswordGrant_UnknownUser(t *testing.T) {
	s, _ := newMemoryService(t)

	_, err := s.PasswordGrant(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
	assert.NotEmpty(t, s.dummy())
}

func TestRefreshGrant_UnconfirmedOrMissingUser(t *testing.T) {
	s, _ := newMemoryService(t)

	tok, err := s.codec.Encode(auth.KindRefresh, uuid.New())
	require.NoError(t, err)
	_, err = s.RefreshGrant(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	access, err := s.codec.Encode(auth.KindAccess, uuid.New())
	require.NoError(t, err)
	_, err = s.CurrentUser(context.Background(), access)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestRefreshGrant_ReusableWithoutRevocations(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()
	registerConfirmed(t, s, "gina", "pw")

	grant, err := s.PasswordGrant(ctx, "gina", "pw")
	require.NoError(t, err)

	_, err = s.RefreshGrant(ctx, grant.RefreshToken)
	require.NoError(t, err)
	_, err = s.RefreshGrant(ctx, grant.RefreshToken)
	require.NoError(t, err)
}

func newRedisRevocations(t *testing.T) (*revocations.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return revocations.NewRedisStore(rdb, ""), mr
}

func TestRefreshGrant_SingleUseWithRevocations(t *testing.T) {
	store, _ := newRedisRevocations(t)
	s, _ := newMemoryService(t, WithRevocations(store))
	ctx := context.Background()
	registerConfirmed(t, s, "hank", "pw")

	grant, err := s.PasswordGrant(ctx, "hank", "pw")
	require.NoError(t, err)

	next, err := s.RefreshGrant(ctx, grant.RefreshToken)
	require.NoError(t, err)

	_, err = s.RefreshGrant(ctx, grant.RefreshToken)
	require.ErrorIs(t, err, common.ErrPermissionDenied)

	_, err = s.RefreshGrant(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshGrant_RevocationStoreDown(t *testing.T) {
	store, mr := newRedisRevocations(t)
	s, _ := newMemoryService(t, WithRevocations(store))
	ctx := context.Background()
	registerConfirmed(t, s, "ivy", "pw")

	grant, err := s.PasswordGrant(ctx, "ivy", "pw")
	require.NoError(t, err)

	mr.Close()
	_, err = s.RefreshGrant(ctx, grant.RefreshToken)
	assert.ErrorIs(t, err, common.ErrStore)
}

func TestToken_Dispatch(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()
	registerConfirmed(t, s, "jack", "pw")

	grant, err := s.Token(ctx, TokenRequest{GrantType: GrantTypePassword, Username: "jack", Password: "pw"})
	require.NoError(t, err)

	_, err = s.Token(ctx, TokenRequest{GrantType: GrantTypeRefreshToken, RefreshToken: grant.RefreshToken})
	require.NoError(t, err)

	_, err = s.Token(ctx, TokenRequest{GrantType: GrantTypePassword, Username: "jack", Password: "nope"})
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	for _, gt := range []string{"", "client_credentials", "PASSWORD"} {
		_, err = s.Token(ctx, TokenRequest{GrantType: gt, Username: "jack", Password: "pw"})
		assert.ErrorIs(t, err, common.ErrUnsupportedGrantType, gt)
	}
}

func TestStatus(t *testing.T) {
	s, _ := newMemoryService(t)
	assert.Equal(t, StatusUp, s.Status(context.Background()).Status)

	down := newService(t, &fakeConn{pingErr: errors.New("refused")}, repomanager.NewMemoryRepositoryManager())
	assert.Equal(t, StatusDown, down.Status(context.Background()).Status)
}

func TestPasswordGrant_UpgradesWeakHash(t *testing.T) {
	ctx := context.Background()
	conn := dbx.NewMemoryConn()
	rm := repomanager.NewMemoryRepositoryManager()

	weak := newService(t, conn, rm)
	registerConfirmed(t, weak, "erin", "pw1")
	before, err := rm.UserStore().GetUserByName(ctx, "erin")
	require.NoError(t, err)

	strongParams := cheapParams
	strongParams.Memory = 2048
	strongHasher := password.NewHasher(strongParams)
	require.True(t, strongHasher.NeedsRehash(before.PasswordHash))

	strong := newService(t, conn, rm, WithHasher(strongHasher))

	_, err = strong.PasswordGrant(ctx, "erin", "wrong")
	require.ErrorIs(t, err, common.ErrPermissionDenied)
	unchanged, err := rm.UserStore().GetUserByName(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, unchanged.PasswordHash, "failed login must not rehash")

	_, err = strong.PasswordGrant(ctx, "erin", "pw1")
	require.NoError(t, err)

	after, err := rm.UserStore().GetUserByName(ctx, "erin")
	require.NoError(t, err)
	assert.NotEqual(t, before.PasswordHash, after.PasswordHash)
	assert.False(t, strongHasher.NeedsRehash(after.PasswordHash))
	assert.True(t, strongHasher.Verify(after.PasswordHash, "pw1"))

	_, err = strong.PasswordGrant(ctx, "erin", "pw1")
	require.NoError(t, err)
	again, err := rm.UserStore().GetUserByName(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, after.PasswordHash, again.PasswordHash, "current hash is left alone")
}
