package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned by CheckTokenFreshness when the bearer token's
// exp claim lies in the past.
var ErrTokenExpired = errors.New("bearer token is expired")

// CheckTokenFreshness inspects the exp claim of a bearer token without
// verifying its signature. The identity provider issues and validates
// tokens; the engine only needs to know whether a push is doomed to a 401
// before it spends a network round trip on it.
//
// Tokens without an exp claim are treated as fresh. A malformed token is
// reported as an error distinct from ErrTokenExpired.
func CheckTokenFreshness(token string, now time.Time) error {
	parser := jwt.NewParser()

	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("parse bearer token: %w", err)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return ErrTokenExpired
	}
	return nil
}
