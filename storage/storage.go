// Package storage is the cold tier: durable bulk object storage addressed by
// paths derived from content keys.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no object exists at the path.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable marks a transient backend failure; callers may retry
	// with bounded backoff.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrQuotaExceeded marks a capacity limit; callers must surface it to the
	// uploader, never retry.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// ColdStore is the cold-tier capability interface. Content-addressed paths
// make Write idempotent: writing the same bytes to the same path twice is a
// no-op from the caller's perspective.
type ColdStore interface {
	Write(ctx context.Context, path string, data []byte, contentType string) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Remove(ctx context.Context, path string) error
}
