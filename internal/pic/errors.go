package pic

import "fmt"

// StoreReadError 表示槽位读取失败（不存在、损坏或 I/O 错误），调用方视为缓存未命中。
type StoreReadError struct {
	Slot string
	Key  string
	Err  error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("pic: read %s slot %q: %v", e.Slot, e.Key, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

// StoreWriteError 表示槽位写入失败，默认策略下请求直接失败。
type StoreWriteError struct {
	Slot string
	Key  string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("pic: write %s slot %q: %v", e.Slot, e.Key, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// FetchError 表示源站不可达、超时或返回非 2xx。Status 为 0 表示没有拿到响应。
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("pic: origin %s returned status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("pic: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MarkerParseError 表示 marker 文本无法解析为时间。
type MarkerParseError struct {
	Raw string
	Err error
}

func (e *MarkerParseError) Error() string {
	return fmt.Sprintf("pic: malformed freshness marker %q: %v", e.Raw, e.Err)
}

func (e *MarkerParseError) Unwrap() error { return e.Err }

const (
	slotArtifact = "artifact"
	slotMarker   = "marker"
)
