package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smartpark/backend/services/booking-service/internal/clock"
)

// ErrInvalidToken covers every reason a bearer token is refused.
var ErrInvalidToken = errors.New("token: invalid token")

// Claims is the JWT payload issued to drivers.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	secret    []byte
	expiresIn time.Duration
	clock     clock.Clock
}

// NewService returns configured token service.
func NewService(secret string, expiresIn time.Duration, clk clock.Clock) *Service {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{secret: []byte(secret), expiresIn: expiresIn, clock: clk}
}

// Generate issues a JWT for the user.
func (s *Service) Generate(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("token: user id is required")
	}

	now := s.clock.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Validate verifies and decodes a JWT.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
