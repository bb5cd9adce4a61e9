// Package kv provides the durable string key-value storage used by the client.
package kv

import "context"

// Storage is a durable string key-value store. Get returns errs.ErrNotFound for missing keys.
type Storage interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (string, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
