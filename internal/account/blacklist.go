package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "telecrm:jwt:blacklist:"

// TokenBlacklist stores revoked tokens in redis until they would have expired.
// A nil *TokenBlacklist is valid and never reports a token as revoked.
type TokenBlacklist struct {
	Client *redis.Client
}

func NewTokenBlacklist(redisURL string) (*TokenBlacklist, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &TokenBlacklist{Client: redis.NewClient(options)}, nil
}

func (b *TokenBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || ttl <= 0 {
		return nil
	}

	return b.Client.Set(ctx, blacklistKey(token), "revoked", ttl).Err()
}

func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if b == nil {
		return false, nil
	}

	count, err := b.Client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (b *TokenBlacklist) Ping(ctx context.Context) error {
	if b == nil {
		return nil
	}

	return b.Client.Ping(ctx).Err()
}

func (b *TokenBlacklist) Close() error {
	if b == nil {
		return nil
	}

	return b.Client.Close()
}

func blacklistKey(token string) string {
	hash := sha256.Sum256([]byte(token))

	return blacklistPrefix + hex.EncodeToString(hash[:])
}
