// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/models"
)

// Database types accepted by Open
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
)

var ErrNotFound = errors.New("not found")

// StorageError reports a failed operation against the backing store.
// Callers may retry; the store itself never does.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Store holds polls and their vote counters.
//
// IncrementVote must bump the option counter and the poll total in one
// indivisible step; concurrent callers never lose an update.
type Store interface {
	CreatePoll(ctx context.Context, question string, options []string) (string, error)
	IncrementVote(ctx context.Context, pollID, optionID string) (count, total int64, err error)
	GetPoll(ctx context.Context, pollID string) (models.Poll, error)
	Close() error
}

// Open connects to the store named by dbType.
func Open(ctx context.Context, dbType, url string) (Store, error) {
	switch dbType {
	case TypeSQLite, TypePostgres:
		return OpenSQL(ctx, dbType, url)
	case TypeRedis:
		return OpenRedis(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}

func newID() string {
	return uuid.NewString()
}
