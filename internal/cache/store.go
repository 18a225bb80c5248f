package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理缓存记录的读写。每条记录由正文与修改时间组成：
//
//	file:    <StoragePath>/<key>            # 正文，ModTime 取自文件系统
//	redis:   HASH todopic:slot:<key>        # body + mtime 两个字段
//	leveldb: b:<key> / t:<key>              # 同一个 batch 写入
type Store interface {
	// Get 返回一个可流式读取的缓存条目。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, key string) (*ReadResult, error)

	// Put 覆盖写入一条记录。实现需保证读者不会看到写了一半的正文，
	// 失败时不得留下残缺数据。可选地根据 opts.ModTime 设置记录时间。
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*Entry, error)

	// Remove 删除记录，不存在时视为成功。
	Remove(ctx context.Context, key string) error

	// Close 释放后端连接或文件句柄。
	Close() error
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
}

// Entry 描述一条已存在的记录。Location 对 file 后端为绝对路径，其余后端为实际 key。
type Entry struct {
	Key       string    `json:"key"`
	Location  string    `json:"location"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader，调用方负责 Close。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() error { return nil }

func newBytesResult(entry Entry, data []byte) *ReadResult {
	return &ReadResult{
		Entry:  entry,
		Reader: bytesReadCloser{Reader: bytes.NewReader(data)},
	}
}

func readAllWithContext(ctx context.Context, body io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := copyWithContext(ctx, &buf, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
