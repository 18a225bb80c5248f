package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "todopic:slot:"

// redisStore 把每条记录存成一个 HASH（body + mtime），HSET 多字段本身是原子的。
type redisStore struct {
	client redis.UniversalClient
}

// NewRedisStore 解析 redis:// URL 并确认连接可用。
func NewRedisStore(rawURL string) (Store, error) {
	if rawURL == "" {
		return nil, errors.New("redis url required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:     []string{opts.Addr},
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (*ReadResult, error) {
	redisKey := redisKeyPrefix + key
	values, err := s.client.HMGet(ctx, redisKey, "body", "mtime").Result()
	if err != nil {
		return nil, err
	}
	if len(values) != 2 || values[0] == nil {
		return nil, ErrNotFound
	}
	body, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected redis body type %T", values[0])
	}

	entry := Entry{
		Key:       key,
		Location:  redisKey,
		SizeBytes: int64(len(body)),
	}
	if raw, ok := values[1].(string); ok {
		if nanos, err := strconv.ParseInt(raw, 10, 64); err == nil {
			entry.ModTime = time.Unix(0, nanos).UTC()
		}
	}
	return newBytesResult(entry, []byte(body)), nil
}

func (s *redisStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*Entry, error) {
	data, err := readAllWithContext(ctx, body)
	if err != nil {
		return nil, err
	}
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}

	redisKey := redisKeyPrefix + key
	if err := s.client.HSet(ctx, redisKey, "body", data, "mtime", strconv.FormatInt(modTime.UnixNano(), 10)).Err(); err != nil {
		return nil, err
	}
	return &Entry{
		Key:       key,
		Location:  redisKey,
		SizeBytes: int64(len(data)),
		ModTime:   modTime,
	}, nil
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

func (s *redisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
