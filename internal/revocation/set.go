// Package revocation は有効期限前に失効させたセッショントークンの一覧を管理します。
//
// エントリはトークン ID (jti) と本来の有効期限の組です。有効期限を過ぎたエントリは
// 検証に影響しないため、Prune で定期的に削除します。
package revocation

import (
	"context"
	"time"
)

// Set は失効済みトークンの集合です。
// Add した内容は以後の Contains から必ず見えます。
type Set interface {
	// Add はトークンを失効済みとして登録します。登録済みでもエラーにはなりません。
	Add(ctx context.Context, tokenID string, expiresAt time.Time) error
	// Contains はトークンが失効済みかどうかを返します。
	Contains(ctx context.Context, tokenID string) (bool, error)
	// Prune は now 時点で有効期限切れのエントリを削除し、削除件数を返します。
	Prune(ctx context.Context, now time.Time) (int, error)
}
