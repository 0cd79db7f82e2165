package auth

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Blacklist records refresh tokens that were logged out, by token ID.
type Blacklist interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	Revoked(ctx context.Context, id string) (bool, error)
}

type RedisBlacklist struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb, now: time.Now}
}

func blacklistKey(id string) string { return "jwt:blacklist:" + id }

// Revoke keeps the entry until the token would have expired anyway.
func (b *RedisBlacklist) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := until.Sub(b.now()) + leeway
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistKey(id), "1", ttl).Err()
}

func (b *RedisBlacklist) Revoked(ctx context.Context, id string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryBlacklist is the single-process fallback when Redis is not
// configured. Entries live for the refresh lifetime; past size the oldest
// revocations are forgotten.
type MemoryBlacklist struct {
	lru *expirable.LRU[string, struct{}]
}

func NewMemoryBlacklist(size int, ttl time.Duration) *MemoryBlacklist {
	if size <= 0 {
		size = 10000
	}
	return &MemoryBlacklist{lru: expirable.NewLRU[string, struct{}](size, nil, ttl+leeway)}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, id string, _ time.Time) error {
	b.lru.Add(id, struct{}{})
	return nil
}

func (b *MemoryBlacklist) Revoked(_ context.Context, id string) (bool, error) {
	return b.lru.Contains(id), nil
}

var (
	_ Blacklist = (*RedisBlacklist)(nil)
	_ Blacklist = (*MemoryBlacklist)(nil)
)

// Sessions pairs token signing with the logout blacklist.
type Sessions struct {
	tokens  *Tokens
	revoked Blacklist
}

func NewSessions(tokens *Tokens, revoked Blacklist) *Sessions {
	return &Sessions{tokens: tokens, revoked: revoked}
}

func (s *Sessions) Login(id Identity) (Pair, error) { return s.tokens.IssuePair(id) }

// Refresh exchanges a live refresh token for a new access token.
func (s *Sessions) Refresh(ctx context.Context, raw string) (string, time.Duration, error) {
	r, err := s.tokens.VerifyRefresh(raw)
	if err != nil {
		return "", 0, err
	}
	revoked, err := s.revoked.Revoked(ctx, r.ID)
	if err != nil {
		return "", 0, err
	}
	if revoked {
		return "", 0, ErrTokenRevoked
	}
	return s.tokens.Issue(r.Identity)
}

// Logout blacklists a refresh token of the signed-in user. Revoking a token
// twice is not an error.
func (s *Sessions) Logout(ctx context.Context, userID int64, raw string) error {
	r, err := s.tokens.VerifyRefresh(raw)
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return ErrInvalidToken
	}
	return s.revoked.Revoke(ctx, r.ID, r.ExpiresAt)
}

// IsTokenError reports whether err is a rejected token rather than a
// blacklist failure.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenRevoked)
}
