package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/account-api/internal/apperr"
	"github.com/yourusername/account-api/internal/credentials"
)

// UsernameParam はプロフィール系ルートのパスパラメータ名です。
const UsernameParam = "username"

type profileResponse struct {
	Username string `json:"username"`
	credentials.Profile
}

// GetHandler は GET /api/auth/profile/:username のハンドラーを返します。
// パスのユーザーとログイン中のユーザーの一致は auth.RequireSameUser で確認済みの前提です。
func GetHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param(UsernameParam)
		profile, err := svc.GetProfileData(c.Request.Context(), username)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, profileResponse{
			Username: username,
			Profile:  profile,
		})
	}
}

// EditHandler は POST /api/auth/profile/:username/edit のハンドラーを返します。
func EditHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials.Profile
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.InvalidInput("", "プロフィールを JSON で送ってください。"))
			return
		}

		if err := svc.UpdateProfile(c.Request.Context(), c.Param(UsernameParam), req); err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "プロフィールを更新しました。",
		})
	}
}
