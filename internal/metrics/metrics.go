// Package metrics は認証まわりの Prometheus メトリクスを定義します。
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// LoginsTotal はログイン試行を結果別に数えます。
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// RegistrationsTotal はユーザー登録を結果別に数えます。
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_registrations_total",
			Help: "Registrations by result",
		},
		[]string{"result"},
	)

	// TokenVerificationsTotal はトークン検証を結果別に数えます。
	TokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_token_verifications_total",
			Help: "Session token verifications by result",
		},
		[]string{"result"},
	)

	// TokensRevokedTotal はログアウト等で失効させたトークン数です。
	TokensRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "account_tokens_revoked_total",
			Help: "Session tokens revoked before expiry",
		},
	)

	// RevocationsPrunedTotal は失効リストから掃除したエントリ数です。
	RevocationsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "account_revocations_pruned_total",
			Help: "Expired entries removed from the revocation list",
		},
	)
)

func init() {
	prometheus.MustRegister(
		LoginsTotal,
		RegistrationsTotal,
		TokenVerificationsTotal,
		TokensRevokedTotal,
		RevocationsPrunedTotal,
	)
}
