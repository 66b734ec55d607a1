// Package auth verifies bearer credentials issued by the external identity provider.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"filevault/internal/model"
)

// ErrUnauthenticated is returned for absent, malformed, expired, revoked or otherwise rejected credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// TokenVerifier validates a credential and extracts the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

// Revoker records tokens that must no longer be accepted before they expire.
type Revoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

const bearerPrefix = "Bearer "

// ParseBearer extracts the token from an Authorization header value. Only the "Bearer <token>"
// scheme is accepted.
func ParseBearer(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrUnauthenticated
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrUnauthenticated
	}
	return token, nil
}

type revokingVerifier struct {
	next    TokenVerifier
	revoked Revoker
}

// WithRevocation wraps next so that tokens present in the revocation list are rejected.
// A revocation list lookup failure rejects the token.
func WithRevocation(next TokenVerifier, revoked Revoker) TokenVerifier {
	return &revokingVerifier{next: next, revoked: revoked}
}

func (v *revokingVerifier) Verify(ctx context.Context, token string) (model.Identity, error) {
	id, err := v.next.Verify(ctx, token)
	if err != nil {
		return model.Identity{}, err
	}
	revoked, err := v.revoked.IsRevoked(ctx, token)
	if err != nil || revoked {
		return model.Identity{}, ErrUnauthenticated
	}
	return id, nil
}
