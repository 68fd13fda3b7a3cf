// Package storage persists the subscriber set.
//
// The only durable state in the bot is the subscribers table; conversation
// history is in-memory by design.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API used by the app and broadcaster.
//
// Subscribe and Unsubscribe are idempotent: re-subscribing an existing chat
// or removing an unknown one is a no-op, not an error.
type Store interface {
	Subscribe(ctx context.Context, chatID int64, firstName, timezone string) error
	Unsubscribe(ctx context.Context, chatID int64) error
	List(ctx context.Context) ([]int64, error)
	Close() error
}
