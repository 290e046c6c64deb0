// Package credentials はユーザーの認証情報とプロフィールを管理します。
//
// パスワードハッシュはこのパッケージの外に出しません。呼び出し側が受け取るのは
// Profile と照合結果だけです。
package credentials

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound はユーザーが存在しない場合に Repository が返します。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate は同名のユーザーが既に存在する場合に Repository が返します。
	ErrDuplicate = errors.New("user already exists")
)

// Profile はユーザーが編集できるプロフィール項目です。Street2 以外は必須です。
type Profile struct {
	Fullname string `json:"fullname" validate:"required"`
	Street1  string `json:"street1" validate:"required"`
	Street2  string `json:"street2"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	Zip      string `json:"zip" validate:"required"`
}

// Record は保存されるユーザー情報です。
type Record struct {
	Username     string
	PasswordHash string
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository はユーザー情報の永続化を担います。
// 同一ユーザーへの書き込みは実装側で直列化されます。
type Repository interface {
	// Get はユーザー情報のコピーを返します。存在しなければ ErrNotFound です。
	Get(ctx context.Context, username string) (*Record, error)
	// Create は新しいユーザーを保存します。既に存在すれば ErrDuplicate です。
	Create(ctx context.Context, record *Record) error
	// UpdateProfile はプロフィール全体を置き換えます。存在しなければ ErrNotFound です。
	UpdateProfile(ctx context.Context, username string, profile Profile, updatedAt time.Time) error
}
