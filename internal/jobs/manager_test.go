package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/account-api/internal/revocation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingPruner struct{}

func (failingPruner) Prune(ctx context.Context, now time.Time) (int, error) {
	return 0, errors.New("redis unavailable")
}

func TestHandlePruneTaskRemovesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	set := revocation.NewMemorySet()
	ctx := context.Background()
	_ = set.Add(ctx, "expired", now.Add(-time.Minute))
	_ = set.Add(ctx, "live", now.Add(time.Minute))

	m := &Manager{pruner: set, now: func() time.Time { return now }, logger: discardLogger()}

	task, err := newPruneTask(PrunePayload{RequestedAt: now})
	if err != nil {
		t.Fatalf("newPruneTask returned error: %v", err)
	}
	if err := m.handlePruneTask(ctx, task); err != nil {
		t.Fatalf("handlePruneTask returned error: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("entries left = %d, want 1", set.Len())
	}
}

func TestHandlePruneTaskInvalidPayloadSkipsRetry(t *testing.T) {
	m := &Manager{pruner: revocation.NewMemorySet(), now: time.Now, logger: discardLogger()}
	err := m.handlePruneTask(context.Background(), asynq.NewTask(TaskTypePruneRevocations, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandlePruneTaskPropagatesStoreError(t *testing.T) {
	m := &Manager{pruner: failingPruner{}, now: time.Now, logger: discardLogger()}
	if err := m.handlePruneTask(context.Background(), asynq.NewTask(TaskTypePruneRevocations, nil)); err == nil {
		t.Fatal("expected error from pruner")
	}
}

func TestNewManagerValidatesArguments(t *testing.T) {
	if _, err := NewManager("redis://127.0.0.1:6379/0", nil, time.Minute, nil); err == nil {
		t.Fatal("expected error for nil pruner")
	}
	if _, err := NewManager("redis://127.0.0.1:6379/0", revocation.NewMemorySet(), 0, nil); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if _, err := NewManager("://bad", revocation.NewMemorySet(), time.Minute, nil); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
