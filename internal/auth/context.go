package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/account-api/internal/apperr"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// Identity は検証済みトークンから得た利用者情報です。
type Identity struct {
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

type identityKey struct{}

// WithIdentity は ctx に Identity を格納します。
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext は ctx から Identity を取り出します。
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// CurrentIdentity は RequireLogin が設定した Identity を返します。
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// MatchIdentity はトークンのユーザーとリクエストで指定されたユーザーが一致するかを検証します。
func MatchIdentity(identity Identity, username string) error {
	if username == "" || identity.Username != username {
		return apperr.Unauthorized("IDENTITY_MISMATCH", "ログイン中のユーザーと指定されたユーザーが一致しません。")
	}
	return nil
}
