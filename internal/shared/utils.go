// Package shared
package shared

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

func SafeEnv(env string) (string, error) {
	// Lookup env variable, and error if not present
	res, present := os.LookupEnv(env)
	if !present {
		return "", fmt.Errorf("missing environment variable %s", env)
	}
	return res, nil
}

func GetEnv(env, fallback string) string {
	if value, ok := os.LookupEnv(env); ok {
		return value
	}
	return fallback
}

// ExtractAPIKey reads the key from X-API-Key, falling back to a bearer token.
func ExtractAPIKey(h http.Header) (string, error) {
	if key := strings.TrimSpace(h.Get(APIKeyHeader)); key != "" {
		return key, nil
	}

	auth := h.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuth
	}

	// Validate bearer format
	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", ErrInvalidFormat
	}
	return parts[1], nil
}
