// Package auth は認証・認可機能を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/account-api/internal/apperr"
	"github.com/yourusername/account-api/internal/metrics"
)

const (
	// SessionCookieName はセッショントークンを保持するクッキー名です。
	SessionCookieName = "auth_token"
	sessionKeyToken   = "token"
)

// Registrar はユーザー登録を行います。
type Registrar interface {
	CreateUser(ctx context.Context, username, password string) error
}

// SessionOptions はセッションクッキーの属性を返します。
func SessionOptions(maxAgeSeconds int, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Manager は認証系エンドポイントのハンドラーとミドルウェアをまとめた構造体です。
type Manager struct {
	core      *Core
	registrar Registrar
	limiter   *LoginLimiter
	logger    *slog.Logger
	secure    bool
}

// ManagerOptions は Manager の任意設定です。
type ManagerOptions struct {
	Limiter      *LoginLimiter
	Logger       *slog.Logger
	SecureCookie bool
}

// NewManager は認証マネージャーを作成します。
func NewManager(core *Core, registrar Registrar, opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		core:      core,
		registrar: registrar,
		limiter:   opts.Limiter,
		logger:    logger,
		secure:    opts.SecureCookie,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

// Register は /register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		apperr.Respond(c, apperr.InvalidInput("", "username と password を JSON で送ってください。"))
		return
	}

	if err := m.registrar.CreateUser(c.Request.Context(), req.Username, req.Password); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		apperr.Respond(c, err)
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	m.logger.InfoContext(c.Request.Context(), "user registered", "username", req.Username)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("ユーザー %s を登録しました。", req.Username),
	})
}

// Login は /login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_input").Inc()
		apperr.Respond(c, apperr.InvalidInput("", "username と password を JSON で送ってください。"))
		return
	}

	ip := c.ClientIP()
	if retryAfter := m.limiter.RetryAfter(ip); retryAfter > 0 {
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		// Retry-After は秒数またはHTTP-Date形式が推奨されているため秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()+0.5), 10))
		apperr.Respond(c, apperr.New(apperr.KindTooManyAttempts, "", "一定時間後に再度お試しください。"))
		return
	}

	token, err := m.core.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			remaining := m.limiter.RecordFailure(ip)
			m.logger.WarnContext(c.Request.Context(), "login failed", "client_ip", ip, "remaining_attempts", remaining)
			status, body := apperr.Resolve(err)
			c.JSON(status, gin.H{
				"code":              body.Code,
				"message":           body.Message,
				"remainingAttempts": remaining,
			})
			return
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		apperr.Respond(c, err)
		return
	}

	m.limiter.Reset(ip)

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionKeyToken, token.Value)
	session.Options(SessionOptions(int(m.core.TTL().Seconds()), m.secure))
	if err := session.Save(); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		apperr.Respond(c, apperr.Wrap(apperr.KindInternal, "SESSION_SAVE_FAILED", "セッションの保存に失敗しました。", err))
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("ユーザー %s の認証に成功しました。", token.Username),
		"expiresAt": token.ExpiresAt,
	})
}

// Authenticate は POST /auth/ のハンドラーです。本文のユーザーがログイン中のユーザーと一致するかを確認します。
func (m *Manager) Authenticate(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Unauthorized("", "ログインが必要です。"))
		return
	}

	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		apperr.Respond(c, apperr.InvalidInput("", "username を JSON で送ってください。"))
		return
	}
	if err := MatchIdentity(identity, req.Username); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("ユーザー %s は認証済みです。", identity.Username),
	})
}

// Logout は /auth/logout のハンドラーです。
// 本文に username が含まれる場合はログイン中のユーザーと一致する必要があります。
func (m *Manager) Logout(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Unauthorized("", "ログインが必要です。"))
		return
	}

	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apperr.Respond(c, apperr.InvalidInput("", "リクエストボディの形式が正しくありません。"))
		return
	}
	if req.Username != "" {
		if err := MatchIdentity(identity, req.Username); err != nil {
			apperr.Respond(c, err)
			return
		}
	}

	session := sessions.Default(c)
	token, _ := session.Get(sessionKeyToken).(string)
	if err := m.core.InvalidateToken(c.Request.Context(), token); err != nil {
		apperr.Respond(c, err)
		return
	}

	session.Clear()
	session.Options(SessionOptions(-1, m.secure))
	if err := session.Save(); err != nil {
		apperr.Respond(c, apperr.Wrap(apperr.KindInternal, "SESSION_SAVE_FAILED", "セッションの削除に失敗しました。", err))
		return
	}

	m.logger.InfoContext(c.Request.Context(), "user logged out", "username", identity.Username)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("ユーザー %s をログアウトしました。", identity.Username),
	})
}

func registrationResult(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindDuplicateUser:
		return "duplicate"
	case apperr.KindInvalidInput:
		return "invalid"
	default:
		return "error"
	}
}
