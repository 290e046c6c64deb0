package credentials

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const lockStripes = 64

// MemoryRepository はプロセス内メモリにユーザー情報を保持します。
// ユーザー単位の書き込みはストライプロックで直列化し、別ユーザー同士は並行に進みます。
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	stripes [lockStripes]sync.RWMutex
}

// NewMemoryRepository は空の MemoryRepository を作成します。
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
	}
}

func (r *MemoryRepository) stripe(username string) *sync.RWMutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return &r.stripes[h.Sum32()%lockStripes]
}

func (r *MemoryRepository) lookup(username string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[username]
	return record, ok
}

// Get はユーザー情報のコピーを返します。
func (r *MemoryRepository) Get(ctx context.Context, username string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := r.stripe(username)
	lock.RLock()
	defer lock.RUnlock()

	record, ok := r.lookup(username)
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// Create はユーザーを追加します。
func (r *MemoryRepository) Create(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := r.stripe(record.Username)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.Username]; exists {
		return ErrDuplicate
	}
	copied := *record
	r.records[record.Username] = &copied
	return nil
}

// UpdateProfile はプロフィールをまとめて置き換えます。
func (r *MemoryRepository) UpdateProfile(ctx context.Context, username string, profile Profile, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := r.stripe(username)
	lock.Lock()
	defer lock.Unlock()

	record, ok := r.lookup(username)
	if !ok {
		return ErrNotFound
	}
	record.Profile = profile
	record.UpdatedAt = updatedAt
	return nil
}
