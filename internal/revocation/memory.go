package revocation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yourusername/account-api/internal/metrics"
)

// MemorySet はプロセス内メモリで失効リストを保持します。
type MemorySet struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemorySet は空の MemorySet を作成します。
func NewMemorySet() *MemorySet {
	return &MemorySet{
		entries: make(map[string]time.Time),
	}
}

func (s *MemorySet) Add(ctx context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[tokenID]; ok && current.After(expiresAt) {
		return nil
	}
	s.entries[tokenID] = expiresAt
	return nil
}

func (s *MemorySet) Contains(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[tokenID]
	return ok, nil
}

func (s *MemorySet) Prune(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, expiresAt := range s.entries {
		if !expiresAt.After(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len は保持しているエントリ数を返します。
func (s *MemorySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartJanitor は interval ごとに Prune を実行するゴルーチンを起動します。ctx の終了で停止します。
func (s *MemorySet) StartJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.janitorPass(ctx, now, logger)
			}
		}
	}()
}

func (s *MemorySet) janitorPass(ctx context.Context, now time.Time, logger *slog.Logger) {
	removed, err := s.Prune(ctx, now)
	if err != nil {
		logger.WarnContext(ctx, "failed to prune revoked tokens", "error", err)
		return
	}
	metrics.RevocationsPrunedTotal.Add(float64(removed))
	if removed > 0 {
		logger.DebugContext(ctx, "pruned revoked tokens", "removed", removed)
	}
}
