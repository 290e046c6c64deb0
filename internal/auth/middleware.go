package auth

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/account-api/internal/apperr"
)

// RequireLogin は署名付きクッキーからトークンを取り出して検証するミドルウェアを返します。
// sessions.Sessions(SessionCookieName, ...) の後に登録してください。
// 検証に成功すると Identity を gin.Context とリクエストの context.Context の両方に格納します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		// クッキーの署名が一致しない場合、セッションは空として扱われる
		token, ok := session.Get(sessionKeyToken).(string)
		if !ok || token == "" {
			apperr.Abort(c, apperr.Unauthorized("", "ログインが必要です。"))
			return
		}

		identity, err := m.core.VerifyToken(c.Request.Context(), token)
		if err != nil {
			apperr.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, identity)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// RequireSameUser はパスパラメータ param のユーザーがログイン中のユーザーと一致することを要求します。
// RequireLogin の後に登録してください。
func RequireSameUser(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			apperr.Abort(c, apperr.Unauthorized("", "ログインが必要です。"))
			return
		}
		if err := MatchIdentity(identity, c.Param(param)); err != nil {
			apperr.Abort(c, err)
			return
		}
		c.Next()
	}
}
