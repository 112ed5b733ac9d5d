package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrUnexpectedSigner = errors.New("unexpected signing method")
)

type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		Secret:     []byte(secret),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        time.Now,
	}
}

func (issuer *TokenIssuer) IssuePair(acc *Account) (*TokenPair, error) {
	access, err := issuer.sign(acc, TokenTypeAccess, issuer.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := issuer.sign(acc, TokenTypeRefresh, issuer.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (issuer *TokenIssuer) IssueAccess(acc *Account) (string, error) {
	return issuer.sign(acc, TokenTypeAccess, issuer.AccessTTL)
}

// Parse validates signature, expiry and the expected token type.
func (issuer *TokenIssuer) Parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigner, token.Header["alg"])
			}

			return issuer.Secret, nil
		},
		jwt.WithTimeFunc(issuer.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

func (issuer *TokenIssuer) sign(acc *Account, tokenType string, ttl time.Duration) (string, error) {
	now := issuer.Now()

	claims := &Claims{
		AccountID: acc.ID.String(),
		Email:     acc.Email,
		Role:      acc.Role.Name,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acc.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.Secret)
}

// Remaining is how long a token stays valid, used as the blacklist TTL.
func (claims *Claims) Remaining(now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}

	return claims.ExpiresAt.Sub(now)
}
