package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// stateTTL bounds how long an OAuth round trip may take.
const stateTTL = 10 * time.Minute

var errBadState = errors.New("invalid oauth state")

// newStateToken issues a short-lived HMAC-signed token used as the OAuth
// state parameter, so the callback can reject forged redirects.
func newStateToken(secret []byte, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// verifyStateToken checks signature and expiry of a state parameter.
func verifyStateToken(secret []byte, token string) error {
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return errBadState
	}
	return nil
}
