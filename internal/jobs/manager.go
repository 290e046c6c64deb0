package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/account-api/internal/metrics"
)

// Pruner は有効期限切れのエントリを削除できる保存先です。revocation.Set が満たします。
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int, error)
}

// Manager は掃除タスクの投入・定期実行・処理を担います。
type Manager struct {
	client    *asynq.Client
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	pruner    Pruner
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager は Manager を初期化します。interval ごとに掃除タスクを登録します。
func NewManager(redisURL string, pruner Pruner, interval time.Duration, logger *slog.Logger) (*Manager, error) {
	if pruner == nil {
		return nil, errors.New("pruner is nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("prune interval must be positive: %s", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	manager := &Manager{
		client: asynq.NewClient(opt),
		server: asynq.NewServer(
			opt,
			asynq.Config{
				Concurrency: 1,
				Queues: map[string]int{
					queueMaintenance: 1,
				},
			},
		),
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC}),
		mux:       asynq.NewServeMux(),
		pruner:    pruner,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
	manager.mux.HandleFunc(TaskTypePruneRevocations, manager.handlePruneTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーとスケジューラーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() error {
	task, err := newPruneTask(PrunePayload{})
	if err != nil {
		return err
	}
	if _, err := m.scheduler.Register(
		fmt.Sprintf("@every %s", m.interval),
		task,
		asynq.Queue(queueMaintenance),
		asynq.Unique(m.interval),
		asynq.MaxRetry(0),
	); err != nil {
		return fmt.Errorf("failed to register prune schedule: %w", err)
	}

	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error("asynq server stopped with error", "error", err)
		}
	}()
	go func() {
		if err := m.scheduler.Run(); err != nil {
			m.logger.Error("asynq scheduler stopped with error", "error", err)
		}
	}()
	return nil
}

// Shutdown はスケジューラー、サーバー、クライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.scheduler.Shutdown()
	m.server.Shutdown()
	return m.client.Close()
}

// EnqueuePrune は掃除タスクを即時投入します。
func (m *Manager) EnqueuePrune(ctx context.Context) (string, error) {
	task, err := newPruneTask(PrunePayload{RequestedAt: m.now().UTC()})
	if err != nil {
		return "", err
	}
	info, err := m.client.EnqueueContext(ctx, task, asynq.Queue(queueMaintenance), asynq.MaxRetry(1))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (m *Manager) handlePruneTask(ctx context.Context, task *asynq.Task) error {
	var payload PrunePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid prune payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	result, err := m.prune(ctx)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "pruned revoked tokens",
		"removed", result.Removed,
		"requested_at", payload.RequestedAt,
	)
	return nil
}

func (m *Manager) prune(ctx context.Context) (*PruneResult, error) {
	removed, err := m.pruner.Prune(ctx, m.now())
	if err != nil {
		return nil, err
	}
	metrics.RevocationsPrunedTotal.Add(float64(removed))
	return &PruneResult{
		Removed:    removed,
		FinishedAt: m.now().UTC(),
	}, nil
}

func newPruneTask(payload PrunePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePruneRevocations, body), nil
}
