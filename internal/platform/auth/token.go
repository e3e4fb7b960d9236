package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of a session token. Role carries the role recorded
// on the identity at creation time; authorization re-resolves the role on
// every request and never trusts this field alone.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// ErrInvalidToken is returned for malformed, badly signed or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewSigner(key []byte, ttl time.Duration, issuer string) *Signer {
	return &Signer{key: key, ttl: ttl, issuer: issuer, now: time.Now}
}

// Issue signs a fresh token for subject with a random jti.
func (s *Signer) Issue(subject, email, role string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email: email,
		Role:  role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Parse validates signature, algorithm, issuer and expiry.
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
