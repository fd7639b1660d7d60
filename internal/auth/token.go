package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/loanwise/platform/internal/domain/users"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrRevokedToken = errors.New("token revoked")
)

const signingMethod = "HS256"

// Token is the access token returned to clients.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Principal is the authenticated identity carried by a verified token.
type Principal struct {
	UserID    string
	Username  string
	IsAdmin   bool
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// IssuerConfig configures token signing.
type IssuerConfig struct {
	Secret  []byte
	Issuer  string
	Expiry  time.Duration
	Revoker *Revoker
	Now     func() time.Time
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret  []byte
	issuer  string
	expiry  time.Duration
	revoker *Revoker
	now     func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.Expiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Revoker == nil {
		cfg.Revoker = NewRevoker(cfg.Now)
	}
	return &Issuer{
		secret:  cfg.Secret,
		issuer:  cfg.Issuer,
		expiry:  cfg.Expiry,
		revoker: cfg.Revoker,
		now:     cfg.Now,
	}, nil
}

// Issue signs a fresh token for user.
func (i *Issuer) Issue(user users.User) (Token, error) {
	now := i.now().UTC().Truncate(time.Second)
	expires := now.Add(i.expiry)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Username: user.Username,
		Admin:    user.IsAdmin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expires}, nil
}

// Parse verifies raw and returns its principal.
func (i *Issuer) Parse(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if c.Subject == "" || c.ID == "" {
		return Principal{}, fmt.Errorf("%w: missing subject or id", ErrInvalidToken)
	}
	if i.revoker.Revoked(c.ID) {
		return Principal{}, ErrRevokedToken
	}

	return Principal{
		UserID:    c.Subject,
		Username:  c.Username,
		IsAdmin:   c.Admin,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}, nil
}

// Revoke invalidates p's token until it would have expired anyway.
func (i *Issuer) Revoke(p Principal) {
	i.revoker.Revoke(p.TokenID, p.ExpiresAt)
}
