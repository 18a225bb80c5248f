package todo

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository 在未配置数据库时使用，进程退出即丢失。
type MemoryRepository struct {
	mu    sync.RWMutex
	items []Todo
}

// NewMemoryRepository 创建空仓库。
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// List 按插入顺序返回副本。
func (r *MemoryRepository) List(ctx context.Context) ([]Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Todo, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, value string) (Todo, error) {
	if err := ctx.Err(); err != nil {
		return Todo{}, err
	}
	if err := Validate(value); err != nil {
		return Todo{}, err
	}
	item := Todo{ID: uuid.New(), Value: value}
	r.mu.Lock()
	r.items = append(r.items, item)
	r.mu.Unlock()
	return item, nil
}

func (r *MemoryRepository) Close() error { return nil }
