// Package kvstore provides the string key-value persistence that alert,
// machine and notification-history collections are serialized into.
package kvstore

import "context"

// Store is a flat string key-value store. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
