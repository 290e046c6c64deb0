// Package jobs はバックグラウンドジョブ（失効リストの定期掃除）を Asynq で実行します。
package jobs

import "time"

const (
	// TaskTypePruneRevocations は失効リストの掃除タスクです。
	TaskTypePruneRevocations = "revocation:prune"

	queueMaintenance = "maintenance"
)

// PrunePayload は掃除タスクのペイロードです。
type PrunePayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

// PruneResult は掃除タスクの実行結果です。
type PruneResult struct {
	Removed    int       `json:"removed"`
	FinishedAt time.Time `json:"finishedAt"`
}
