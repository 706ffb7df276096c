package auth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TokenExtractor parses the Authorization header into a user id. The current
// token format is an opaque bearer token whose value is the user's uuid, as
// issued by the upstream identity gateway.
//
// TODO_JWT_FUTURE: when signed tokens land, verification goes here and the
// middleware stays unchanged.
type TokenExtractor struct{}

func NewTokenExtractor() *TokenExtractor {
	return &TokenExtractor{}
}

// ExtractUserIDFromHeader parses "Bearer <uuid>" and returns the user id.
func (e *TokenExtractor) ExtractUserIDFromHeader(authHeader string) (uuid.UUID, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return uuid.Nil, fmt.Errorf("authorization header is not a bearer token")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	if token == "" {
		return uuid.Nil, fmt.Errorf("bearer token is empty")
	}

	userID, err := uuid.Parse(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token format: %w", err)
	}
	return userID, nil
}
