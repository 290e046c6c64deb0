package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yourusername/account-api/internal/apperr"
	"github.com/yourusername/account-api/internal/metrics"
	"github.com/yourusername/account-api/internal/revocation"
)

const tokenIssuer = "account-api"

// CredentialVerifier はユーザー名とパスワードの照合を行います。
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (bool, error)
}

// Token は発行済みのセッショントークンです。
type Token struct {
	Value     string
	ID        string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Core はセッショントークンの発行・検証・失効を担います。
//
// トークンは HS256 の JWT で、サーバー側にセッション表は持ちません。
// 検証は署名、有効期限、失効リストの順に行います。
type Core struct {
	secret      []byte
	ttl         time.Duration
	credentials CredentialVerifier
	revoked     revocation.Set
	now         func() time.Time
}

// Option は Core の設定を変更します。
type Option func(*Core)

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(c *Core) {
		c.now = now
	}
}

// NewCore は Core を作成します。
func NewCore(secret []byte, ttl time.Duration, credentials CredentialVerifier, revoked revocation.Set, opts ...Option) (*Core, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: %s", ttl)
	}
	if revoked == nil {
		return nil, errors.New("revocation set is nil")
	}
	c := &Core{
		secret:      secret,
		ttl:         ttl,
		credentials: credentials,
		revoked:     revoked,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL はトークンの有効期間を返します。
func (c *Core) TTL() time.Duration {
	return c.ttl
}

// IssueToken は username のトークンを発行します。
func (c *Core) IssueToken(username string) (Token, error) {
	if username == "" {
		return Token{}, apperr.InvalidInput("", "ユーザー名が指定されていません。")
	}
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.ttl)
	id := uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   username,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(c.secret)
	if err != nil {
		return Token{}, apperr.Internal(fmt.Errorf("failed to sign token: %w", err))
	}

	return Token{
		Value:     signed,
		ID:        id,
		Username:  username,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Login は資格情報を照合し、成功すればトークンを発行します。
func (c *Core) Login(ctx context.Context, username, password string) (Token, error) {
	if c.credentials == nil {
		return Token{}, apperr.Internal(errors.New("credential verifier is not configured"))
	}
	ok, err := c.credentials.VerifyCredentials(ctx, username, password)
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, apperr.Unauthorized("INVALID_CREDENTIALS", "ユーザー名またはパスワードが正しくありません。")
	}
	return c.IssueToken(username)
}

// VerifyToken はトークンを検証し、埋め込まれた利用者情報を返します。
func (c *Core) VerifyToken(ctx context.Context, token string) (Identity, error) {
	claims, err := c.parse(token, true)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			metrics.TokenVerificationsTotal.WithLabelValues("expired").Inc()
			return Identity{}, apperr.Unauthorized("TOKEN_EXPIRED", "セッションの有効期限が切れました。")
		}
		metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		return Identity{}, apperr.Unauthorized("TOKEN_INVALID", "セッションが無効です。")
	}

	revoked, err := c.revoked.Contains(ctx, claims.ID)
	if err != nil {
		return Identity{}, apperr.Internal(err)
	}
	if revoked {
		metrics.TokenVerificationsTotal.WithLabelValues("revoked").Inc()
		return Identity{}, apperr.Unauthorized("TOKEN_REVOKED", "セッションは無効化されています。")
	}

	metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	return Identity{
		Username:  claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// InvalidateToken はトークンを失効リストに登録します。
// 失効済みや期限切れのトークンに対して呼んでもエラーにはなりません。
func (c *Core) InvalidateToken(ctx context.Context, token string) error {
	claims, err := c.parse(token, false)
	if err != nil {
		return apperr.Unauthorized("TOKEN_INVALID", "セッションが無効です。")
	}

	expiresAt := claims.ExpiresAt.Time
	if !expiresAt.After(c.now()) {
		return nil
	}
	if err := c.revoked.Add(ctx, claims.ID, expiresAt); err != nil {
		return apperr.Internal(err)
	}
	metrics.TokensRevokedTotal.Inc()
	return nil
}

// parse は署名を検証してクレームを取り出します。validateClaims が false の場合は有効期限を見ません。
func (c *Core) parse(token string, validateClaims bool) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, jwt.ErrTokenMalformed
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
