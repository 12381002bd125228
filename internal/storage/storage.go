package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Package storage provides the key-value persistence abstraction and the
// bookmark/city records built on top of it.

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Supported backend types.
const (
	TypeBBolt  = "bbolt"
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// Options carries backend-specific settings.
type Options struct {
	BBoltPath   string
	RedisURL    string
	RedisPrefix string
	SQLitePath  string
}

// StorageError reports a failed store operation.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func wrapErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

// NewStore creates the configured storage backend.
func NewStore(typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled", TypeMemory:
		return NewMemoryStore(), nil
	case TypeBBolt:
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BBoltPath)
	case TypeRedis:
		if strings.TrimSpace(opts.RedisURL) == "" {
			return nil, fmt.Errorf("redis storage requires a url")
		}
		return openRedis(opts.RedisURL, opts.RedisPrefix)
	case TypeSQLite:
		if strings.TrimSpace(opts.SQLitePath) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}
