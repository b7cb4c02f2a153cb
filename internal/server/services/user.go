// Package services contains server-side business logic. This file implements
// UserService: registration, confirmation, password and refresh grants, and
// current-user lookup.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/revocations"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTxRetries = 3
	txRetryBase      = 20 * time.Millisecond
)

// UserService is safe for concurrent use. Its only mutable state lives in
// the store behind db.
type UserService struct {
	db           dbx.Conn
	repomanager  repomanager.RepositoryManager
	codec        *auth.Codec
	hasher       *password.Hasher
	revocations  revocations.Store
	storeTimeout time.Duration
	txRetries    uint64
	log          logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

// Option customises a UserService.
type Option func(*UserService)

// WithHasher replaces the default Argon2id hasher.
func WithHasher(h *password.Hasher) Option {
	return func(s *UserService) { s.hasher = h }
}

// WithRevocations makes refresh tokens single-use.
func WithRevocations(store revocations.Store) Option {
	return func(s *UserService) { s.revocations = store }
}

// WithTxRetries sets how many times a registration transaction is retried
// after a serialization failure.
func WithTxRetries(n uint64) Option {
	return func(s *UserService) { s.txRetries = n }
}

// NewUserService builds the service from cfg. It fails when the token
// secret or validity settings are unusable.
func NewUserService(db dbx.Conn, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, opts ...Option) (*UserService, error) {
	codec, err := auth.NewCodec([]byte(cfg.SecretKey), auth.Validity{
		Access:  cfg.AccessTokenValidityDuration,
		Refresh: cfg.RefreshTokenValidityDuration,
		Confirm: cfg.ConfirmTokenValidityDuration,
	})
	if err != nil {
		return nil, err
	}

	s := &UserService{
		db:           db,
		repomanager:  m,
		codec:        codec,
		hasher:       password.NewHasher(password.DefaultParams),
		storeTimeout: cfg.StoreTimeout,
		txRetries:    defaultTxRetries,
		log:          log.With("module", "users"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an unconfirmed user and returns a confirm token for it.
// A taken name yields common.ErrUserExists and leaves the existing user
// untouched.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	err = s.withTxRetry(ctx, func(ctx context.Context) error {
		return s.db.InTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Users(tx)

			_, err := repo.GetUserByName(ctx, user.Name)
			if err == nil {
				return common.ErrUserExists
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}

			_, err = repo.Create(ctx, user)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrUserExists) {
			return nil, common.ErrUserExists
		}
		s.log.Error(ctx, "registration failed", "error", err)
		return nil, storeError(err)
	}

	confirm, err := s.codec.Encode(auth.KindConfirm, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error generating confirm token: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return &RegisterResponse{ConfirmToken: confirm}, nil
}

// ConfirmNewUser marks the token's subject confirmed. Confirming twice is
// not an error.
func (s *UserService) ConfirmNewUser(ctx context.Context, confirmToken string) error {
	tok, err := s.codec.Decode(confirmToken, auth.KindConfirm)
	if err != nil {
		return common.ErrInvalidConfirmToken
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	err = s.repomanager.Users(s.db).SetConfirmed(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidConfirmToken
		}
		s.log.Error(ctx, "confirmation failed", "user_id", tok.UserID, "error", err)
		return storeError(err)
	}

	s.log.Info(ctx, "user confirmed", "user_id", tok.UserID)
	return nil
}

// Token dispatches on req.GrantType.
func (s *UserService) Token(ctx context.Context, req TokenRequest) (*AccessTokenResponse, error) {
	switch req.GrantType {
	case GrantTypePassword:
		return s.PasswordGrant(ctx, req.Username, req.Password)
	case GrantTypeRefreshToken:
		return s.RefreshGrant(ctx, req.RefreshToken)
	default:
		return nil, common.ErrUnsupportedGrantType
	}
}

// PasswordGrant authenticates a confirmed user by name and password.
// Unknown user, unconfirmed user and wrong password are indistinguishable.
func (s *UserService) PasswordGrant(ctx context.Context, name, plain string) (*AccessTokenResponse, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetConfirmedByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(s.dummy(), plain)
			return nil, common.ErrPermissionDenied
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, storeError(err)
	}

	if !s.hasher.Verify(user.PasswordHash, plain) {
		return nil, common.ErrPermissionDenied
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, plain)
	}

	return s.issueTokens(user.ID)
}

// rehash stores plain under the current hashing parameters. Failures are
// logged only; the grant itself already succeeded.
func (s *UserService) rehash(ctx context.Context, id uuid.UUID, plain string) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		s.log.Warn(ctx, "password rehash failed", "user_id", id, "error", err)
		return
	}
	if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, id, hash); err != nil {
		s.log.Warn(ctx, "password rehash failed", "user_id", id, "error", err)
		return
	}
	s.log.Info(ctx, "password rehashed", "user_id", id)
}

// RefreshGrant exchanges a refresh token for a new token pair. With a
// revocation store configured each refresh token is accepted once.
func (s *UserService) RefreshGrant(ctx context.Context, refreshToken string) (*AccessTokenResponse, error) {
	tok, err := s.codec.Decode(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, common.ErrPermissionDenied
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetConfirmedByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrPermissionDenied
		}
		s.log.Error(ctx, "user lookup failed", "user_id", tok.UserID, "error", err)
		return nil, storeError(err)
	}

	if s.revocations != nil {
		first, err := s.revocations.Consume(ctx, tok.ID, time.Until(tok.ExpiresAt))
		if err != nil {
			s.log.Error(ctx, "refresh token revocation failed", "user_id", user.ID, "error", err)
			return nil, storeError(err)
		}
		if !first {
			s.log.Warn(ctx, "refresh token reused", "user_id", user.ID)
			return nil, common.ErrPermissionDenied
		}
	}

	return s.issueTokens(user.ID)
}

// CurrentUser resolves an access token to the confirmed user it names.
func (s *UserService) CurrentUser(ctx context.Context, accessToken string) (*CurrentUserResponse, error) {
	tok, err := s.codec.Decode(accessToken, auth.KindAccess)
	if err != nil {
		return nil, common.ErrPermissionDenied
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetConfirmedByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrPermissionDenied
		}
		s.log.Error(ctx, "user lookup failed", "user_id", tok.UserID, "error", err)
		return nil, storeError(err)
	}

	return &CurrentUserResponse{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// Status reports whether the store answers a ping.
func (s *UserService) Status(ctx context.Context) StatusResponse {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.log.Warn(ctx, "store ping failed", "error", err)
		return StatusResponse{Status: StatusDown}
	}
	return StatusResponse{Status: StatusUp}
}

// --- helpers below ---

func (s *UserService) issueTokens(userID uuid.UUID) (*AccessTokenResponse, error) {
	access, err := s.codec.Encode(auth.KindAccess, userID)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}
	refresh, err := s.codec.Encode(auth.KindRefresh, userID)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	return &AccessTokenResponse{
		AccessToken:  access,
		TokenType:    common.TokenTypeBearer,
		ExpiresIn:    int64(s.codec.Validity().Access / time.Second),
		RefreshToken: refresh,
	}, nil
}

func (s *UserService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// withTxRetry reruns fn while it fails with a serialization failure.
func (s *UserService) withTxRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(s.txRetries, retry.NewExponential(txRetryBase))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if dbx.IsSerializationFailure(err) {
			s.log.Debug(ctx, "retrying serialization failure")
			return retry.RetryableError(err)
		}
		return err
	})
}

// dummy returns a valid hash of a random password, used to spend the same
// time on unknown users as on known ones.
func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func storeError(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStore, err)
}
