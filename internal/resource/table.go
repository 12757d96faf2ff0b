// Package resource issues transient display handles for file payloads,
// the blob URL of the desktop shell. Handles must be released when the
// owning block goes away or its payload is replaced.
package resource

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"canvas/internal/domain"
)

const scheme = "blob:"

type Table struct {
	mu      sync.Mutex
	entries map[string]domain.File
}

func NewTable() *Table {
	return &Table{entries: make(map[string]domain.File)}
}

// Acquire registers f and returns its handle.
func (t *Table) Acquire(f domain.File) string {
	h := scheme + uuid.NewString()
	t.mu.Lock()
	t.entries[h] = f
	t.mu.Unlock()
	return h
}

// Resolve returns the file behind a live handle.
func (t *Table) Resolve(handle string) (domain.File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.entries[handle]
	return f, ok
}

// Release drops the handle. Unknown or already released handles are ignored.
func (t *Table) Release(handle string) bool {
	if !strings.HasPrefix(handle, scheme) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[handle]; !ok {
		return false
	}
	delete(t.entries, handle)
	return true
}

// Len is the number of live handles.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
