package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for cookies that fail signature or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// Signer signs and verifies the values stored in cookies with an HMAC key.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer for key.
func NewSigner(key []byte) *Signer {
	return &Signer{key: key}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// FlashClaims is the payload of a flash cookie.
type FlashClaims struct {
	Category string `json:"cat"`
	Message  string `json:"msg"`
	jwt.RegisteredClaims
}

func (s *Signer) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s *Signer) parse(value string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// SignSession wraps a session id for the session cookie.
func (s *Signer) SignSession(sessionID string, userID int64, expiresAt time.Time) (string, error) {
	return s.sign(sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
}

// ParseSession returns the session id carried by a session cookie value.
func (s *Signer) ParseSession(value string) (string, error) {
	var claims sessionClaims
	if err := s.parse(value, &claims); err != nil {
		return "", err
	}
	if claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}

// SignFlash signs a one-time message valid for ttl.
func (s *Signer) SignFlash(category, message string, ttl time.Duration) (string, error) {
	return s.sign(FlashClaims{
		Category: category,
		Message:  message,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

// ParseFlash verifies a flash cookie value.
func (s *Signer) ParseFlash(value string) (*FlashClaims, error) {
	var claims FlashClaims
	if err := s.parse(value, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
