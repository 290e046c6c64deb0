package credentials

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher は bcrypt によるハッシュ化と照合を行います。
// CPU を占有する処理なので同時実行数をセマフォで GOMAXPROCS までに抑えます。
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	// 存在しないユーザーの照合に使うハッシュ。作成時に一度だけ生成する
	dummyHash []byte
	dummyErr  error
}

// NewHasher は Hasher を作成します。cost が範囲外なら bcrypt.DefaultCost を使います。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
	h.dummyHash, h.dummyErr = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return h
}

// Hash はパスワードをハッシュ化します。
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare はハッシュとパスワードを照合します。一致しない場合は false を返します。
func (h *Hasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
}

// CompareDummy は存在しないユーザーに対しても同じコストの照合を行い、常に false を返します。
func (h *Hasher) CompareDummy(ctx context.Context, password string) (bool, error) {
	if h.dummyErr != nil {
		return false, fmt.Errorf("failed to prepare dummy hash: %w", h.dummyErr)
	}
	if _, err := h.Compare(ctx, string(h.dummyHash), password); err != nil {
		return false, err
	}
	return false, nil
}
