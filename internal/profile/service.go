// Package profile はログイン済みユーザーのプロフィール参照・更新を提供します。
package profile

import (
	"context"

	"github.com/yourusername/account-api/internal/credentials"
)

// Store はプロフィールの読み書きを行う保存先です。
type Store interface {
	GetProfile(ctx context.Context, username string) (credentials.Profile, error)
	SetProfile(ctx context.Context, username string, profile credentials.Profile) error
}

// Service はプロフィール操作を提供します。呼び出し前に認証済みであることが前提です。
type Service struct {
	store Store
}

// NewService は Service を作成します。
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetProfileData はプロフィールを返します。
func (s *Service) GetProfileData(ctx context.Context, username string) (credentials.Profile, error) {
	return s.store.GetProfile(ctx, username)
}

// UpdateProfile は必須項目を検証してからプロフィール全体を置き換えます。
// 一部の項目だけが送られた場合は既存の値と混ぜずにエラーを返します。
func (s *Service) UpdateProfile(ctx context.Context, username string, profile credentials.Profile) error {
	if err := credentials.ValidateProfile(profile); err != nil {
		return err
	}
	return s.store.SetProfile(ctx, username, credentials.NormalizeProfile(profile))
}
