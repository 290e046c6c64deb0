// Package server はルーティングとミドルウェアの配線を行います。
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/account-api/internal/apperr"
	"github.com/yourusername/account-api/internal/auth"
	"github.com/yourusername/account-api/internal/config"
	"github.com/yourusername/account-api/internal/credentials"
	"github.com/yourusername/account-api/internal/profile"
	"github.com/yourusername/account-api/internal/revocation"
)

// Dependencies はルーターが利用する保存先とロガーです。
type Dependencies struct {
	Users   credentials.Repository
	Revoked revocation.Set
	Logger  *slog.Logger
}

// New は設定と依存関係から gin.Engine を組み立てます。
func New(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if deps.Users == nil || deps.Revoked == nil {
		return nil, errors.New("users repository and revocation set are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := credentials.NewStore(deps.Users, credentials.NewHasher(cfg.BcryptCost))
	core, err := auth.NewCore([]byte(cfg.JWTSecret), cfg.TokenTTL, store, deps.Revoked)
	if err != nil {
		return nil, err
	}
	authManager := auth.NewManager(core, store, auth.ManagerOptions{
		Limiter:      auth.NewLoginLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow, cfg.LoginLockout),
		Logger:       logger,
		SecureCookie: cfg.IsRelease(),
	})
	profileService := profile.NewService(store)

	// Logger は gin 標準、Recovery は JSON でエラーを返す独自実装
	router := gin.New()
	// 信頼するプロキシ以外から届いた X-Forwarded-For は ClientIP に反映しない
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	router.Use(gin.Logger(), apperr.Recovery())

	// セッションストアの設定（クッキー署名鍵は必須）
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(auth.SessionOptions(int(cfg.TokenTTL.Seconds()), cfg.IsRelease()))
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, authManager, profileService)
	return router, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "account-api",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, profileService *profile.Service) {
	router.GET("/health", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(apperr.NoRoute)

	api := router.Group("/api")
	{
		api.POST("/login", authManager.Login)
		api.POST("/register", authManager.Register)

		protected := api.Group("/auth", authManager.RequireLogin())
		{
			protected.POST("/", authManager.Authenticate)
			protected.POST("/logout", authManager.Logout)

			owner := protected.Group("/profile/:"+profile.UsernameParam, auth.RequireSameUser(profile.UsernameParam))
			owner.GET("", profile.GetHandler(profileService))
			owner.POST("/edit", profile.EditHandler(profileService))
		}
	}
}
