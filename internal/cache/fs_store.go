package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// tempPattern 是写入过程中临时文件的命名，rename 之前读者看不到它。
const tempPattern = ".slot-*"

// NewStore 以 basePath 为根目录构建 file 后端。相对 key（如 pic.jpeg）落在
// basePath 下，绝对 key（IMAGE_PATH=/var/lib/todopic/pic.jpeg）原样使用。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	root, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fileStore{root: root, locks: make(map[string]*keyLock)}, nil
}

// fileStore 每个 key 对应一个文件，同一文件的写入与删除互斥。
type fileStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu      sync.Mutex
	holders int
}

func (s *fileStore) Get(ctx context.Context, key string) (*ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.entryPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	return &ReadResult{
		Entry: Entry{
			Key:       key,
			Location:  filePath,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		},
		Reader: f,
	}, nil
}

func (s *fileStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*Entry, error) {
	filePath, err := s.entryPath(key)
	if err != nil {
		return nil, err
	}
	release := s.acquire(filePath)
	defer release()

	written, err := replaceFile(ctx, filePath, body)
	if err != nil {
		return nil, err
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	if err := os.Chtimes(filePath, modTime, modTime); err != nil {
		return nil, err
	}

	return &Entry{
		Key:       key,
		Location:  filePath,
		SizeBytes: written,
		ModTime:   modTime,
	}, nil
}

// replaceFile 先写同目录临时文件再 rename 覆盖目标；任何失败都会删除临时文件，
// 旧内容保持不变。
func replaceFile(ctx context.Context, target string, body io.Reader) (int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	written, err := copyWithContext(ctx, tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, target)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	return written, nil
}

func (s *fileStore) Remove(ctx context.Context, key string) error {
	filePath, err := s.entryPath(key)
	if err != nil {
		return err
	}
	release := s.acquire(filePath)
	defer release()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Close() error {
	return nil
}

// acquire 锁住 filePath，返回的函数释放锁并在无人持有时回收。
func (s *fileStore) acquire(filePath string) func() {
	s.mu.Lock()
	lock, ok := s.locks[filePath]
	if !ok {
		lock = &keyLock{}
		s.locks[filePath] = lock
	}
	lock.holders++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		if lock.holders--; lock.holders == 0 {
			delete(s.locks, filePath)
		}
		s.mu.Unlock()
	}
}

// entryPath 把 key 解析为文件路径；相对 key 不能逃出 root，也不能指向 root 本身。
func (s *fileStore) entryPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("cache key required")
	}
	if filepath.IsAbs(key) {
		return filepath.Clean(key), nil
	}

	filePath := filepath.Join(s.root, filepath.FromSlash(key))
	if filePath == s.root {
		return "", errors.New("cache key resolves to storage root")
	}
	if !strings.HasPrefix(filePath, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("cache key %q escapes storage path", key)
	}
	return filePath, nil
}
