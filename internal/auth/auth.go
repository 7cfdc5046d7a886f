// Package auth issues and verifies the bearer tokens that identify players.
// Player accounts live outside the slot server; a token carries the player
// id in its subject and an operator flag for staff tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")
)

// Claims are the fields the server reads from a token.
type Claims struct {
	PlayerID  string
	Operator  bool
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Operator bool `json:"operator,omitempty"`
}

// Service signs and checks HS256 tokens
type Service struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// New creates a token service. An empty issuer accepts any issuer.
func New(secret, issuer string) *Service {
	return &Service{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a player token valid for ttl.
func (s *Service) Issue(playerID string, ttl time.Duration) (string, error) {
	return s.sign(playerID, false, ttl)
}

// IssueOperator signs a token that may use the operator endpoints.
func (s *Service) IssueOperator(operatorID string, ttl time.Duration) (string, error) {
	return s.sign(operatorID, true, ttl)
}

func (s *Service) sign(subject string, operator bool, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Operator: operator,
	}
	if s.issuer != "" {
		claims.Issuer = s.issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, expiry and issuer and returns the
// claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &tc, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tc.Subject == "" {
		return nil, ErrNoSubject
	}

	c := &Claims{PlayerID: tc.Subject, Operator: tc.Operator}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}
