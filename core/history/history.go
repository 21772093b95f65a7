// Package history holds the lines entered into the shell.
package history

import "sync"

// DefaultSize is the number of lines kept by default.
const DefaultSize = 50

// History is a bounded list of lines, the oldest line is dropped once it's
// full.
type History struct {
	mu      sync.Mutex
	size    int
	entries []string
}

// New creates a history that keeps the last size lines.
func New(size int) *History {
	if size <= 0 {
		size = DefaultSize
	}
	return &History{size: size}
}

// Add appends line.
func (h *History) Add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) >= h.size {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, line)
}

// Entries returns a copy of the lines, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.entries...)
}

// Len returns the number of lines held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.entries)
}

// Clear drops every line.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
}
