package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// signingKey is the shared JWT secret (§A: JWT_SECRET), following the
// teacher's server/auth.go convention of a single HMAC key rather than a
// per-user identity provider — there is no login flow here, just a bearer
// token issued out of band to whoever is allowed to call the API.
var signingKey = []byte(getEnvOrDefault("JWT_SECRET", "dev-secret-change-me"))

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// claims carries no user identity, unlike the teacher's Claims{UserID}:
// this service has no user accounts, only a single trusted caller.
type claims struct {
	jwt.RegisteredClaims
}

// IssueToken mints a bearer token valid for the given duration, for use by
// an operator setting up a client (there is no signup/login endpoint).
func IssueToken(validFor time.Duration) (string, error) {
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validFor)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(signingKey)
}

// validateToken checks the bearer token from an Authorization header,
// matching the teacher's validateToken shape.
func validateToken(authHeader string) error {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		return fmt.Errorf("missing bearer token")
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
