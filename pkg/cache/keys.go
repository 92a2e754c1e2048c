// Package cache provides standardized cache key generation functions.
// Consistent key naming avoids collisions and makes cache management
// easier. All keys follow the pattern: "prefix:identifier".
package cache

import "fmt"

// Key prefixes for different cache types.
const (
	ProfilePrefix = "profile:"
)

// ProfileKey generates a cache key for a public user profile by username.
//
// Example: "profile:diego"
func ProfileKey(username string) string {
	return fmt.Sprintf("%s%s", ProfilePrefix, username)
}
