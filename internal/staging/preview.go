package staging

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Preview is a locally held copy of a selected file.
type Preview struct {
	Handle      string
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// PreviewRegistry holds previews until they are released.
type PreviewRegistry struct {
	mu       sync.Mutex
	previews map[string]*Preview
	onExpire []func(handle string)
	now      func() time.Time
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{
		previews: make(map[string]*Preview),
		now:      time.Now,
	}
}

// Create registers a preview of f and returns its handle.
func (r *PreviewRegistry) Create(f File) string {
	handle := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previews[handle] = &Preview{
		Handle:      handle,
		Name:        f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
		CreatedAt:   r.now(),
	}
	return handle
}

// Get returns the preview for handle.
func (r *PreviewRegistry) Get(handle string) (*Preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.previews[handle]
	return p, ok
}

// Release drops a preview. Unknown handles are ignored.
func (r *PreviewRegistry) Release(handle string) {
	if handle == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.previews, handle)
}

// OnExpire registers fn to be told about every handle ReleaseOlderThan
// drops. fn runs without the registry lock held.
func (r *PreviewRegistry) OnExpire(fn func(handle string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = append(r.onExpire, fn)
}

// ReleaseOlderThan drops every preview created more than ttl ago and
// returns how many were released.
func (r *PreviewRegistry) ReleaseOlderThan(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var expired []string
	for h, p := range r.previews {
		if p.CreatedAt.Before(cutoff) {
			delete(r.previews, h)
			expired = append(expired, h)
		}
	}
	hooks := r.onExpire
	r.mu.Unlock()

	for _, h := range expired {
		for _, fn := range hooks {
			fn(h)
		}
	}
	return len(expired)
}

// Len returns the number of live previews.
func (r *PreviewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.previews)
}
