package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	MinSigningKeyLen = 32
	Pending2FATTL    = 5 * time.Minute
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrSigningKeyTooShort = errors.New("signing key must be at least 32 bytes")
)

type TokenType string

const (
	TokenTypeFull       TokenType = "FULL"
	TokenTypePending2FA TokenType = "PENDING_2FA"
)

type Claims struct {
	LoginID string    `json:"loginId"`
	Role    string    `json:"role"`
	Type    TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Identity is what gets embedded into a token.
type Identity struct {
	Subject string
	LoginID string
	Role    string
}

type TokenIssuer struct {
	key     []byte
	fullTTL time.Duration
	now     func() time.Time
}

func NewTokenIssuer(key []byte, fullTTL time.Duration) (*TokenIssuer, error) {
	return NewTokenIssuerWithClock(key, fullTTL, time.Now)
}

func NewTokenIssuerWithClock(key []byte, fullTTL time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if len(key) < MinSigningKeyLen {
		return nil, ErrSigningKeyTooShort
	}
	if fullTTL <= 0 {
		return nil, fmt.Errorf("full token ttl must be positive, got %s", fullTTL)
	}
	return &TokenIssuer{
		key:     append([]byte(nil), key...),
		fullTTL: fullTTL,
		now:     now,
	}, nil
}

func (i *TokenIssuer) IssueFull(id Identity) (string, error) {
	return i.issue(id, TokenTypeFull, i.fullTTL)
}

// IssuePending2FA signs a short-lived token that is only good for the
// second login step.
func (i *TokenIssuer) IssuePending2FA(id Identity) (string, error) {
	return i.issue(id, TokenTypePending2FA, Pending2FATTL)
}

func (i *TokenIssuer) issue(id Identity, typ TokenType, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		LoginID: id.LoginID,
		Role:    id.Role,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry. Every failure wraps ErrInvalidToken.
func (i *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != TokenTypeFull && claims.Type != TokenTypePending2FA {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrInvalidToken, claims.Type)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (i *TokenIssuer) IsValid(tokenStr string) bool {
	_, err := i.Parse(tokenStr)
	return err == nil
}

func (i *TokenIssuer) IsFullToken(tokenStr string) bool {
	claims, err := i.Parse(tokenStr)
	return err == nil && claims.Type == TokenTypeFull
}

func (i *TokenIssuer) IsPending2FAToken(tokenStr string) bool {
	claims, err := i.Parse(tokenStr)
	return err == nil && claims.Type == TokenTypePending2FA
}

func (i *TokenIssuer) ExtractSubject(tokenStr string) (string, error) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (i *TokenIssuer) ExtractLoginID(tokenStr string) (string, error) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.LoginID, nil
}

func (i *TokenIssuer) ExtractRole(tokenStr string) (string, error) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

func (i *TokenIssuer) FullTTL() time.Duration {
	return i.fullTTL
}
