// Package service provides the relay's business logic: credential
// issuing and activity retention.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atinyakov/kidcoin/internal/models"
)

// TokenTTL is how long an issued credential stays valid.
const TokenTTL = time.Hour

// ErrInvalidToken is returned for tokens that fail validation.
var ErrInvalidToken = errors.New("invalid token")

// Capability is the set of actions a credential grants per channel.
type Capability map[string][]string

// Allows reports whether the capability grants action on channel.
func (c Capability) Allows(channel, action string) bool {
	for _, a := range c[channel] {
		if a == action {
			return true
		}
	}
	return false
}

type capabilityClaims struct {
	Capability Capability `json:"capability"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the short-lived credentials clients
// use to connect to the relay. The capability of every credential is
// publish and subscribe on exactly the three fixed channels.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService signing with secret.
func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret, ttl: TokenTTL, now: time.Now}
}

// Issue returns a fresh credential. The capability is fixed; callers
// cannot request a wider grant.
func (s *TokenService) Issue() (models.Credential, error) {
	capability := Capability{}
	for _, channel := range models.Channels() {
		capability[channel] = []string{"publish", "subscribe"}
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := capabilityClaims{
		Capability: capability,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kidcoin-client",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return models.Credential{}, fmt.Errorf("sign credential: %w", err)
	}
	return models.Credential{Token: token, Expires: expires.Unix()}, nil
}

// Validate checks signature and expiry and returns the capability the
// token carries.
func (s *TokenService) Validate(tokenStr string) (Capability, error) {
	var claims capabilityClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Capability == nil {
		return nil, ErrInvalidToken
	}
	return claims.Capability, nil
}
