package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList is a redis-backed deny-list of tokens. Entries expire together with the token.
type RevocationList struct {
	client *redis.Client
}

var _ Revoker = (*RevocationList)(nil)

func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client}
}

// buildKey hashes the token so raw credentials are never stored.
func (r *RevocationList) buildKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

func (r *RevocationList) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.buildKey(token), "1", ttl).Err()
}

func (r *RevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, err := r.client.Get(ctx, r.buildKey(token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
