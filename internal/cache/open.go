package cache

import "fmt"

// 支持的后端名称，与配置中的 Pic.Backend 对应。
const (
	BackendFile    = "file"
	BackendRedis   = "redis"
	BackendLevelDB = "leveldb"
)

// OpenOptions 描述打开某个后端所需的全部参数。
type OpenOptions struct {
	Backend     string
	BasePath    string
	RedisURL    string
	LevelDBPath string
}

// Open 按 Backend 选择实现；空 Backend 视为 file。
func Open(opts OpenOptions) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewStore(opts.BasePath)
	case BackendRedis:
		return NewRedisStore(opts.RedisURL)
	case BackendLevelDB:
		return NewLevelDBStore(opts.LevelDBPath)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", opts.Backend)
	}
}
