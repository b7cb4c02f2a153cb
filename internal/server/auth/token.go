// Package auth mints and validates the three kinds of signed tokens the
// service hands out: access, refresh and confirm.
//
// All kinds share one HMAC secret, so each token carries a "knd" claim and
// Decode only accepts the kind the caller asks for. Without it a confirm
// token would be a perfectly valid access token.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates token purposes.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindConfirm Kind = "confirm"
)

func (k Kind) valid() bool {
	return k == KindAccess || k == KindRefresh || k == KindConfirm
}

// Claims is the signed payload. Subject holds the user ID and ID a random
// token identifier.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"knd"`
}

// Token is a successfully decoded claim.
type Token struct {
	Kind      Kind
	UserID    uuid.UUID
	ID        string
	ExpiresAt time.Time
}

// Validity holds the lifetime of each token kind.
type Validity struct {
	Access  time.Duration
	Refresh time.Duration
	Confirm time.Duration
}

func (v Validity) of(k Kind) time.Duration {
	switch k {
	case KindAccess:
		return v.Access
	case KindRefresh:
		return v.Refresh
	default:
		return v.Confirm
	}
}

// Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	secret   []byte
	validity Validity
	now      func() time.Time
}

// NewCodec fails on an empty secret or a non-positive validity.
func NewCodec(secret []byte, validity Validity) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if validity.Access <= 0 || validity.Refresh <= 0 || validity.Confirm <= 0 {
		return nil, errors.New("token validity must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{secret: key, validity: validity, now: time.Now}, nil
}

// Validity returns the configured lifetimes.
func (c *Codec) Validity() Validity {
	return c.validity
}

// Encode signs a fresh token of the given kind for userID.
func (c *Codec) Encode(kind Kind, userID uuid.UUID) (string, error) {
	if !kind.valid() {
		return "", errors.New("unknown token kind")
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.validity.of(kind))),
		},
		Kind: kind,
	})

	return token.SignedString(c.secret)
}

// Decode validates tokenString as a token of the expected kind. Every
// failure (bad signature, wrong algorithm, expired, wrong kind, malformed
// subject) yields common.ErrInvalidToken and nothing else.
func (c *Codec) Decode(tokenString string, expected Kind) (*Token, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Kind != expected {
		return nil, common.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	return &Token{
		Kind:      claims.Kind,
		UserID:    userID,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
