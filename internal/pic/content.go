package pic

import (
	"context"
	"time"

	"github.com/todopic/todopic/internal/cache"
)

// ContentStore 持有图片正文单槽。
type ContentStore struct {
	slot cache.Slot
}

// NewContentStore 把 store 中的 key 作为正文槽位。
func NewContentStore(store cache.Store, key string) *ContentStore {
	return &ContentStore{slot: cache.NewSlot(store, key)}
}

// Key 返回正文槽位名。
func (c *ContentStore) Key() string {
	return c.slot.Key()
}

// Read 读取正文；不存在、为空或 I/O 失败时返回 *StoreReadError。
func (c *ContentStore) Read(ctx context.Context) ([]byte, error) {
	data, _, err := c.slot.Load(ctx)
	if err != nil {
		return nil, &StoreReadError{Slot: slotArtifact, Key: c.slot.Key(), Err: err}
	}
	if len(data) == 0 {
		return nil, &StoreReadError{Slot: slotArtifact, Key: c.slot.Key(), Err: cache.ErrNotFound}
	}
	return data, nil
}

// Write 覆盖正文。
func (c *ContentStore) Write(ctx context.Context, data []byte) error {
	if _, err := c.slot.Save(ctx, data, time.Time{}); err != nil {
		return &StoreWriteError{Slot: slotArtifact, Key: c.slot.Key(), Err: err}
	}
	return nil
}
