package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client, lookupColumns ...string) *Store {
	return newStore(c, Config{LookupColumns: lookupColumns})
}
