// Package cache stores upstream response bodies keyed by a hash of the
// request URL.
package cache

import (
	"context"
	"crypto/sha1" //nolint:gosec // cache key, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"civitas/pkg/platform/sentinel"
)

// Store persists response bodies. Get returns sentinel.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
}

// Key derives the cache key for url. ext ("json", "xml") keeps payload kinds
// apart on disk.
func Key(url, ext string) string {
	sum := sha1.Sum([]byte(url)) //nolint:gosec
	key := hex.EncodeToString(sum[:])
	if ext != "" {
		key += "." + strings.TrimPrefix(ext, ".")
	}
	return key
}

// FileStore keeps one file per key under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	body, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return body, nil
}

// Put writes through a temporary file so readers never see a partial body.
func (s *FileStore) Put(_ context.Context, key string, body []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

const redisKeyPrefix = "harvest:cache:"

// RedisStore keeps entries in Redis with an optional TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps entries until evicted.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", sentinel.ErrUnavailable, err)
	}
	return body, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, body []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, body, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
