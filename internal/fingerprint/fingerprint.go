// Package fingerprint tracks the last-seen version token per board so the
// client can issue conditional fetches and skip reconciliation when the
// server asserts nothing changed.
package fingerprint

import (
	"sync"
)

// Cache maps board ids to the fingerprint of the most recent successful
// fetch. Tokens are scoped per board: switching boards never reuses a
// stale token from a previous board.
type Cache struct {
	mu      sync.Mutex
	byBoard map[string]string
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{byBoard: make(map[string]string)}
}

// Get returns the last-seen fingerprint for the board, or "" when the board
// has never been fetched.
func (c *Cache) Get(boardID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byBoard[boardID]
}

// Set records the fingerprint from a successful full fetch. Empty tokens
// are ignored so a server that omits the header does not erase state.
func (c *Cache) Set(boardID, fp string) {
	if fp == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byBoard[boardID] = fp
}

// Forget drops the board's fingerprint, forcing the next fetch to be
// unconditional.
func (c *Cache) Forget(boardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byBoard, boardID)
}
