package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix = "user:"

	fieldPasswordHash = "password_hash"
	fieldFullname     = "fullname"
	fieldStreet1      = "street1"
	fieldStreet2      = "street2"
	fieldCity         = "city"
	fieldState        = "state"
	fieldZip          = "zip"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"

	maxTxAttempts = 5
)

// RedisRepository はユーザー情報を Redis のハッシュに保存します。
// 書き込みは WATCH によるトランザクションで行い、競合時は再試行します。
type RedisRepository struct {
	rdb redis.UniversalClient
}

// NewRedisRepository は RedisRepository を作成します。
func NewRedisRepository(rdb redis.UniversalClient) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

// Get はユーザー情報を取得します。
func (r *RedisRepository) Get(ctx context.Context, username string) (*Record, error) {
	values, err := r.rdb.HGetAll(ctx, userKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", username, err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return &Record{
		Username:     username,
		PasswordHash: values[fieldPasswordHash],
		Profile: Profile{
			Fullname: values[fieldFullname],
			Street1:  values[fieldStreet1],
			Street2:  values[fieldStreet2],
			City:     values[fieldCity],
			State:    values[fieldState],
			Zip:      values[fieldZip],
		},
		CreatedAt: parseTime(values[fieldCreatedAt]),
		UpdatedAt: parseTime(values[fieldUpdatedAt]),
	}, nil
}

// Create はユーザーを保存します（既に存在する場合は ErrDuplicate）。
func (r *RedisRepository) Create(ctx context.Context, record *Record) error {
	key := userKey(record.Username)
	fields := profileFields(record.Profile)
	fields[fieldPasswordHash] = record.PasswordHash
	fields[fieldCreatedAt] = formatTime(record.CreatedAt)
	fields[fieldUpdatedAt] = formatTime(record.UpdatedAt)

	return r.transact(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return ErrDuplicate
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})
		return err
	})
}

// UpdateProfile はプロフィール項目を一括で置き換えます。
func (r *RedisRepository) UpdateProfile(ctx context.Context, username string, profile Profile, updatedAt time.Time) error {
	key := userKey(username)
	fields := profileFields(profile)
	fields[fieldUpdatedAt] = formatTime(updatedAt)

	return r.transact(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})
		return err
	})
}

func (r *RedisRepository) transact(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.rdb.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction on %s did not settle after %d attempts", key, maxTxAttempts)
}

func profileFields(p Profile) map[string]any {
	return map[string]any{
		fieldFullname: p.Fullname,
		fieldStreet1:  p.Street1,
		fieldStreet2:  p.Street2,
		fieldCity:     p.City,
		fieldState:    p.State,
		fieldZip:      p.Zip,
	}
}

func userKey(username string) string {
	return userKeyPrefix + username
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
