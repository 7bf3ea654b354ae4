package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
	"github.com/bugline/bugline/service"
)

// JWTConfig configures the token manager. Zero TTLs fall back to
// 15 minutes for access tokens and 24 hours for refresh tokens.
type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	Admin    bool   `json:"admin"`
}

type refreshClaims struct {
	jwt.RegisteredClaims
	UserType string `json:"user_type"`
	Refresh  bool   `json:"refresh"`
}

// JWTManager issues and validates HS256-signed tokens.
type JWTManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTManager creates a token manager from the config.
func NewJWTManager(cfg JWTConfig) *JWTManager {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	return &JWTManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// IssueAccessToken mints a short-lived access token carrying the
// caller's identity claims.
func (m *JWTManager) IssueAccessToken(c service.Claims) (string, error) {
	now := m.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   c.Subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
		Email:    c.Email,
		UserType: string(c.UserType),
		Admin:    c.Admin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// IssueRefreshToken mints a long-lived refresh token.
func (m *JWTManager) IssueRefreshToken(userID uuid.UUID, userType domain.UserType) (string, error) {
	now := m.now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
		UserType: string(userType),
		Refresh:  true,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateRefreshToken parses a refresh token and returns its subject.
// Expired tokens fail with ErrTokenExpired, everything else malformed
// with ErrTokenInvalid. An access token presented here is rejected.
func (m *JWTManager) ValidateRefreshToken(token string) (uuid.UUID, error) {
	var claims refreshClaims
	_, err := jwt.ParseWithClaims(token, &claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("security: refresh token expired: %w", bugline.ErrTokenExpired)
		}
		return uuid.Nil, fmt.Errorf("security: parsing refresh token: %w", bugline.ErrTokenInvalid)
	}
	if !claims.Refresh {
		return uuid.Nil, fmt.Errorf("security: token is not a refresh token: %w", bugline.ErrTokenInvalid)
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("security: malformed token subject: %w", bugline.ErrTokenInvalid)
	}
	return subject, nil
}

// ValidateAccessToken parses an access token and returns the identity
// claims baked into it. Used by the HTTP bearer-auth middleware.
func (m *JWTManager) ValidateAccessToken(token string) (service.Claims, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return service.Claims{}, fmt.Errorf("security: access token expired: %w", bugline.ErrTokenExpired)
		}
		return service.Claims{}, fmt.Errorf("security: parsing access token: %w", bugline.ErrTokenInvalid)
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return service.Claims{}, fmt.Errorf("security: malformed token subject: %w", bugline.ErrTokenInvalid)
	}
	return service.Claims{
		Subject:  subject,
		Email:    claims.Email,
		UserType: domain.UserType(claims.UserType),
		Admin:    claims.Admin,
	}, nil
}

func (m *JWTManager) keyFunc(*jwt.Token) (any, error) {
	return m.secret, nil
}
