package valkey

import "github.com/redis/rueidis"

// NewStoreForTest wraps an existing rueidis client, typically a mock (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
