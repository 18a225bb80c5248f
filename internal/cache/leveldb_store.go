package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
)

// levelDBStore 用 b:<key> 保存正文、t:<key> 保存修改时间，二者在同一个 batch 中写入。
type levelDBStore struct {
	db       *leveldb.DB
	location string
}

// NewLevelDBStore 打开（或创建）path 处的 leveldb 目录。
func NewLevelDBStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("leveldb path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve leveldb path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &levelDBStore{db: db, location: abs}, nil
}

func bodyKey(key string) []byte { return []byte("b:" + key) }
func timeKey(key string) []byte { return []byte("t:" + key) }

func (s *levelDBStore) Get(ctx context.Context, key string) (*ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := s.db.Get(bodyKey(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	entry := Entry{
		Key:       key,
		Location:  s.location + "#" + key,
		SizeBytes: int64(len(body)),
	}
	if raw, err := s.db.Get(timeKey(key), nil); err == nil && len(raw) == 8 {
		entry.ModTime = time.Unix(0, int64(binary.BigEndian.Uint64(raw))).UTC()
	}
	return newBytesResult(entry, body), nil
}

func (s *levelDBStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*Entry, error) {
	data, err := readAllWithContext(ctx, body)
	if err != nil {
		return nil, err
	}
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	stamp := make([]byte, 8)
	binary.BigEndian.PutUint64(stamp, uint64(modTime.UnixNano()))

	batch := new(leveldb.Batch)
	batch.Put(bodyKey(key), data)
	batch.Put(timeKey(key), stamp)
	if err := s.db.Write(batch, nil); err != nil {
		return nil, err
	}
	return &Entry{
		Key:       key,
		Location:  s.location + "#" + key,
		SizeBytes: int64(len(data)),
		ModTime:   modTime,
	}, nil
}

func (s *levelDBStore) Remove(ctx context.Context, key string) error {
	batch := new(leveldb.Batch)
	batch.Delete(bodyKey(key))
	batch.Delete(timeKey(key))
	return s.db.Write(batch, nil)
}

func (s *levelDBStore) Close() error {
	return s.db.Close()
}
