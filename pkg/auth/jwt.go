package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrNoRole       = errors.New("token carries no role")
)

// RoleService issues and verifies bearer tokens that carry the caller's
// department role under a configurable claim name.
type RoleService interface {
	GenerateToken(subject, role string, ttl time.Duration) (string, error)
	RoleFromToken(token string) (string, error)
}

type JWTService struct {
	secret    []byte
	roleClaim string
}

func NewJWTService(secret, roleClaim string) *JWTService {
	if roleClaim == "" {
		roleClaim = "department"
	}
	return &JWTService{secret: []byte(secret), roleClaim: roleClaim}
}

func (s *JWTService) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       subject,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
		s.roleClaim: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) RoleFromToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}

	role, _ := claims[s.roleClaim].(string)
	if role == "" {
		return "", ErrNoRole
	}
	return role, nil
}
