package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/account-api/internal/apperr"
)

// Store はユーザー登録、パスワード照合、プロフィールの読み書きを提供します。
type Store struct {
	repo   Repository
	hasher *Hasher
	now    func() time.Time
}

// NewStore は Store を作成します。
func NewStore(repo Repository, hasher *Hasher) *Store {
	return &Store{
		repo:   repo,
		hasher: hasher,
		now:    time.Now,
	}
}

// CreateUser はユーザーを登録します。パスワードはハッシュ化してから保存します。
func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	if err := validateRegistration(username, password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return apperr.Internal(err)
	}

	now := s.now().UTC()
	err = s.repo.Create(ctx, &Record{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicate):
		return apperr.New(apperr.KindDuplicateUser, "", "このユーザー名は既に使用されています。")
	default:
		return apperr.Internal(err)
	}
}

// VerifyCredentials はユーザー名とパスワードの組を照合します。
// ユーザーが存在しない場合も同じコストの照合を行い false を返します。
func (s *Store) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	record, err := s.repo.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if _, dummyErr := s.hasher.CompareDummy(ctx, password); dummyErr != nil {
				return false, apperr.Internal(dummyErr)
			}
			return false, nil
		}
		return false, apperr.Internal(err)
	}

	ok, err := s.hasher.Compare(ctx, record.PasswordHash, password)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ok, nil
}

// GetProfile はプロフィールを返します。
func (s *Store) GetProfile(ctx context.Context, username string) (Profile, error) {
	record, err := s.repo.Get(ctx, username)
	if err != nil {
		return Profile{}, translateLookupError(err)
	}
	return record.Profile, nil
}

// SetProfile はプロフィールを一括で置き換えます。必須項目が欠けていれば何も変更しません。
func (s *Store) SetProfile(ctx context.Context, username string, profile Profile) error {
	if err := ValidateProfile(profile); err != nil {
		return err
	}
	if err := s.repo.UpdateProfile(ctx, username, NormalizeProfile(profile), s.now().UTC()); err != nil {
		return translateLookupError(err)
	}
	return nil
}

func translateLookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("USER_NOT_FOUND", "ユーザーが見つかりません。")
	}
	return apperr.Internal(err)
}
