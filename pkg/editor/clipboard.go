package editor

import "sync"

// ClipboardStore is the injected key-value store backing copy and paste.
// Modeling it as a dependency rather than ambient global state keeps the
// session testable and lets a host share a clipboard across sessions.
type ClipboardStore interface {
	Put(key string, data []byte)
	Get(key string) ([]byte, bool)
}

// MemoryClipboard is a process-local ClipboardStore.
type MemoryClipboard struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryClipboard creates an empty in-memory clipboard.
func NewMemoryClipboard() *MemoryClipboard {
	return &MemoryClipboard{data: make(map[string][]byte)}
}

func (c *MemoryClipboard) Put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.data[key] = buf
}

func (c *MemoryClipboard) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return nil, false
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, true
}
