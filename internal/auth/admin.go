package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// VerifyAdminToken checks the provided token against the configured bcrypt hash.
// An empty hash disables admin access.
func VerifyAdminToken(hashedToken, plainToken string) bool {
	if hashedToken == "" || plainToken == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken))
	return err == nil
}

// HashAdminToken produces the value to put in ADMIN_TOKEN_HASH.
func HashAdminToken(plainToken string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}
