package chat

import "sync"

// Registry is the in-process record of live thread ids and the sole
// authority on whether an id is usable. Entries are only ever added, never
// removed or expired; contents are lost on process restart, which is an
// accepted limitation of the design.
type Registry struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// Add registers a thread id as live.
func (r *Registry) Add(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[threadID] = struct{}{}
}

// IsLive reports whether the thread id was registered in this process.
// Pure membership check; never contacts the platform.
func (r *Registry) IsLive(threadID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[threadID]
	return ok
}

// Len returns the number of registered threads.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
