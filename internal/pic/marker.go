package pic

import (
	"context"
	"strings"
	"time"

	"github.com/todopic/todopic/internal/cache"
)

// MarkerLayout 是 marker 的持久化格式，写入与读取使用同一个 layout，时区固定 UTC。
const MarkerLayout = "2006-01-02 15:04:05.999999999 UTC"

// Epoch 是缺失或损坏 marker 的哨兵值，保证之后的比较一定判定为过期。
var Epoch = time.Unix(0, 0).UTC()

// FormatMarker 把时间编码为 marker 文本。
func FormatMarker(t time.Time) string {
	return t.UTC().Format(MarkerLayout)
}

// ParseMarker 解析 marker 文本，兼容 RFC 3339。失败时返回 *MarkerParseError。
func ParseMarker(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	t, err := time.Parse(MarkerLayout, trimmed)
	if err == nil {
		return t.UTC(), nil
	}
	if alt, altErr := time.Parse(time.RFC3339Nano, trimmed); altErr == nil {
		return alt.UTC(), nil
	}
	return time.Time{}, &MarkerParseError{Raw: raw, Err: err}
}

// Marker 是一次读取的结果。Seeded 为 true 时 At 等于 Epoch，Reason 记录原因。
type Marker struct {
	At     time.Time
	Seeded bool
	Reason error
}

// FreshnessStore 持有 marker 单槽，对 TTL 与正文槽一无所知。
type FreshnessStore struct {
	slot cache.Slot
}

// NewFreshnessStore 把 store 中的 key 作为 marker 槽位。
func NewFreshnessStore(store cache.Store, key string) *FreshnessStore {
	return &FreshnessStore{slot: cache.NewSlot(store, key)}
}

// Key 返回 marker 槽位名。
func (f *FreshnessStore) Key() string {
	return f.slot.Key()
}

// Read 读取 marker。缺失或无法解析时写入 Epoch 并返回它；
// 写入失败时仍返回 Epoch，同时返回 *StoreWriteError 交给调用方决定。
func (f *FreshnessStore) Read(ctx context.Context) (Marker, error) {
	data, _, err := f.slot.Load(ctx)
	var reason error
	if err == nil {
		at, parseErr := ParseMarker(string(data))
		if parseErr == nil {
			return Marker{At: at}, nil
		}
		reason = parseErr
	} else {
		reason = &StoreReadError{Slot: slotMarker, Key: f.slot.Key(), Err: err}
	}

	marker := Marker{At: Epoch, Seeded: true, Reason: reason}
	if err := f.Write(ctx, Epoch); err != nil {
		return marker, err
	}
	return marker, nil
}

// Write 覆盖 marker，最后写入者生效。
func (f *FreshnessStore) Write(ctx context.Context, t time.Time) error {
	if _, err := f.slot.Save(ctx, []byte(FormatMarker(t)), time.Time{}); err != nil {
		return &StoreWriteError{Slot: slotMarker, Key: f.slot.Key(), Err: err}
	}
	return nil
}
