package apperr

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body はエラーレスポンスの JSON 形式です。
type Body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Resolve は err を HTTP ステータスとレスポンスボディに変換します。
// 分類できないエラーは 500 と汎用メッセージになります。
func Resolve(err error) (int, Body) {
	var appErr *Error
	switch {
	case errors.As(err, &appErr) && appErr.Kind != KindInternal:
		return appErr.Status(), Body{Code: appErr.Code, Message: appErr.Message}
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, Body{
			Code:    "REQUEST_CANCELED",
			Message: "リクエストがキャンセルされました。",
		}
	default:
		return http.StatusInternalServerError, Body{
			Code:    string(KindInternal),
			Message: "サーバー内部でエラーが発生しました。",
		}
	}
}

// Respond はエラーを JSON で返します。
func Respond(c *gin.Context, err error) {
	status, body := Resolve(err)
	logInternal(c, status, err)
	c.JSON(status, body)
}

// Abort はエラーを返し、後続のハンドラーを実行しません。
func Abort(c *gin.Context, err error) {
	status, body := Resolve(err)
	logInternal(c, status, err)
	c.AbortWithStatusJSON(status, body)
}

// Recovery は panic を 500 の JSON レスポンスに変換するミドルウェアです。
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.ErrorContext(c.Request.Context(), "panic recovered",
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		_, body := Resolve(nil)
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

// NoRoute は未定義ルート用のハンドラーです。
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, Body{
		Code:    string(KindNotFound),
		Message: "リソースが見つかりません。",
	})
}

func logInternal(c *gin.Context, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	slog.ErrorContext(c.Request.Context(), "request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
}
