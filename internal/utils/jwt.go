package utils // package utils provides helpers for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when an access token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT access token along with its expiry. Access
// tokens are short lived and sent in the Authorization header.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a long-lived token used to obtain new access tokens. Only a
// SHA-256 hash of Raw is stored server side.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Claims is the verified content of an access token.
type Claims struct {
	Subject string
	Role    string
	Exp     time.Time
}

// NewAccessToken builds and signs an HS256 JWT. The subject is the judge id
// for contractors and the fixed "admin" subject for the administrator.
func NewAccessToken(secret, subject, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and returns its
// claims. Only HS256 is accepted.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	role, _ := mc["role"].(string)
	if sub == "" || role == "" {
		return Claims{}, fmt.Errorf("%w: missing sub or role", ErrInvalidToken)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Subject: sub, Role: role, Exp: exp.Time}, nil
}

// NewRefreshToken returns a random refresh token valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of the raw refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
