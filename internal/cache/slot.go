package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

// ErrStoreUnavailable 表示当前槽位未注入缓存存储实例。
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Slot 把 Store 中的一个固定 key 包装成单槽读写，覆盖写、不追加。
type Slot struct {
	store Store
	key   string
}

// NewSlot 构造绑定到 key 的单槽视图。
func NewSlot(store Store, key string) Slot {
	return Slot{store: store, key: key}
}

// Enabled 返回当前是否具备读写能力。
func (s Slot) Enabled() bool {
	return s.store != nil && s.key != ""
}

// Key 返回槽位名，供日志和错误信息使用。
func (s Slot) Key() string {
	return s.key
}

// Load 读出完整正文。记录不存在时返回 ErrNotFound。
func (s Slot) Load(ctx context.Context) ([]byte, Entry, error) {
	if !s.Enabled() {
		return nil, Entry{}, ErrStoreUnavailable
	}
	result, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, Entry{}, err
	}
	defer result.Reader.Close()

	data, err := io.ReadAll(result.Reader)
	if err != nil {
		return nil, result.Entry, err
	}
	return data, result.Entry, nil
}

// Save 用 data 覆盖槽位内容，modTime 为空时由后端取当前时间。
func (s Slot) Save(ctx context.Context, data []byte, modTime time.Time) (*Entry, error) {
	if !s.Enabled() {
		return nil, ErrStoreUnavailable
	}
	return s.store.Put(ctx, s.key, bytes.NewReader(data), PutOptions{ModTime: modTime})
}
