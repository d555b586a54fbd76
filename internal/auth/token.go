package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Roles carried by sandbox tokens.
const (
	RoleController = "controller"
	RoleViewer     = "viewer"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongSandbox  = errors.New("token issued for another sandbox")
	ErrNotController = errors.New("controller token required")
)

// ControlClaims identify who may drive a sandbox.
type ControlClaims struct {
	SandboxID string `json:"sandbox_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IssueControlToken signs an HS256 token granting role on sandboxID.
func IssueControlToken(secret, sandboxID, role string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := ControlClaims{
		SandboxID: sandboxID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sandboxID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign control token: %w", err)
	}
	return signed, exp, nil
}

// ParseControlToken verifies signature, algorithm and expiry.
func ParseControlToken(secret, tokenString string) (*ControlClaims, error) {
	claims := &ControlClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthorizeController checks that tokenString lets its holder mutate sandboxID.
func AuthorizeController(secret, sandboxID, tokenString string) error {
	claims, err := ParseControlToken(secret, tokenString)
	if err != nil {
		return err
	}
	if claims.SandboxID != sandboxID {
		return ErrWrongSandbox
	}
	if claims.Role != RoleController {
		return ErrNotController
	}
	return nil
}
