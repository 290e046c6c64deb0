package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey は失効リストを保持するソート済みセットのキーです。
const DefaultRedisKey = "auth:revoked_tokens"

// RedisSet は失効リストを Redis のソート済みセットに保存します。スコアは有効期限の UNIX 秒です。
type RedisSet struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisSet は RedisSet を作成します。key が空なら DefaultRedisKey を使います。
func NewRedisSet(rdb redis.UniversalClient, key string) *RedisSet {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSet{rdb: rdb, key: key}
}

func (s *RedisSet) Add(ctx context.Context, tokenID string, expiresAt time.Time) error {
	err := s.rdb.ZAdd(ctx, s.key, redis.Z{
		Score:  float64(expiresAt.Unix()),
		Member: tokenID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *RedisSet) Contains(ctx context.Context, tokenID string) (bool, error) {
	err := s.rdb.ZScore(ctx, s.key, tokenID).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return true, nil
}

func (s *RedisSet) Prune(ctx context.Context, now time.Time) (int, error) {
	removed, err := s.rdb.ZRemRangeByScore(ctx, s.key, "-inf", strconv.FormatInt(now.Unix(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return int(removed), nil
}
