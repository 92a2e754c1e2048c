// Package cache defines common error types used throughout the caching layer.
package cache

import "errors"

// ErrCacheMiss indicates the requested key was not found in cache.
// This is expected behavior when a key hasn't been cached yet or has
// expired, not necessarily an error condition.
var ErrCacheMiss = errors.New("cache miss")
