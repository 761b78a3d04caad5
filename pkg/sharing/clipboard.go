package sharing

import (
	"context"
	"sync"
)

// MemoryClipboard keeps the last copied text. The HTTP API returns it to the
// browser, which performs the actual copy.
type MemoryClipboard struct {
	mu     sync.Mutex
	last   string
	copies int
}

func NewMemoryClipboard() *MemoryClipboard {
	return &MemoryClipboard{}
}

func (c *MemoryClipboard) Copy(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = text
	c.copies++

	return nil
}

func (c *MemoryClipboard) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

func (c *MemoryClipboard) Copies() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.copies
}
