// Package kv implements the local key/value store backing the session gate.
// It deliberately mirrors the browser-origin storage of the original front
// end: a flat namespace of string keys holding opaque byte values.
package kv

import "context"

// Repository is a minimal persisted key/value store.
//
// Contract:
//   - Get returns common.ErrorNotFound when the key is absent.
//   - Set creates or overwrites.
//   - Delete is a no-op for absent keys.
//   - Clear removes every key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
