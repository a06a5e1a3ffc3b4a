// Package auth verifies the identity tokens issued by the identity provider.
// The token subject is the user's uid.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("token secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Verifier checks HS256 identity tokens. Issuer and audience are checked only
// when configured.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewVerifier(secret, issuer, audience string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// Verify returns the uid the token was issued for.
func (v *Verifier) Verify(tokenStr string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Issue signs a token for uid that Verify accepts until ttl elapses.
func (v *Verifier) Issue(uid string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Issuer:    v.issuer,
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
