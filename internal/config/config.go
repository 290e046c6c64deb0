// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DevelopmentSecret は JWT_SECRET 未設定時に使う開発用の署名鍵です。release モードでは拒否されます。
const DevelopmentSecret = "dev-only-insecure-secret"

// ストアのバックエンド種別
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// 認証設定
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"dev-only-insecure-secret"` // トークン署名用の秘密鍵
	SessionSecret string        `env:"SESSION_SECRET"`                                    // クッキー署名用の秘密鍵（未設定なら JWT_SECRET）
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"1h"`                         // セッショントークンの有効期間
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`                       // bcrypt のコスト

	// ログイン試行制限
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	LoginLockout     time.Duration `env:"LOGIN_LOCKOUT" envDefault:"10m"`

	// サーバー設定
	Port    string `env:"PORT" envDefault:"3001"`     // APIサーバーのポート番号
	GinMode string `env:"GIN_MODE" envDefault:"debug"` // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins []string `env:"CLIENT_URL" envDefault:"http://localhost:3000" envSeparator:","`

	// X-Forwarded-For を信頼するプロキシ（IP または CIDR）。空なら接続元アドレスをそのまま使う
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// ストア設定
	StoreBackend            string        `env:"STORE_BACKEND" envDefault:"memory"`             // memory または redis
	RedisURL                string        `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"` // ストアと Asynq 用の Redis
	RevocationPruneInterval time.Duration `env:"REVOCATION_PRUNE_INTERVAL" envDefault:"10m"`      // 失効リストの掃除間隔
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

func (c *Config) normalize() {
	if c.SessionSecret == "" {
		c.SessionSecret = c.JWTSecret
	}
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))

	c.CORSAllowedOrigins = trimList(c.CORSAllowedOrigins)
	c.TrustedProxies = trimList(c.TrustedProxies)
}

func trimList(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsRelease は release モードで動作しているかを返します。
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	// ローカル開発では開発用の鍵を許容する
	if c.IsRelease() {
		if c.JWTSecret == DevelopmentSecret {
			return fmt.Errorf("JWT_SECRET is required in release mode")
		}
		if c.SessionSecret == DevelopmentSecret {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.CORSAllowedOrigins) == 0 {
			return fmt.Errorf("CLIENT_URL is required in release mode")
		}
	}

	return nil
}
