// components/auth/registry.go
//
// Flows are held in an LRU keyed by flow ID.  A miss builds a new flow
// behind a singleflight barrier so concurrent first requests carrying the
// same cookie share one controller.  Evicted flows are closed, which stops
// their debounce and choreography timers.

package auth

import (
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/forma/internal/cache"
	"github.com/yanizio/forma/internal/metrics"
)

// DefaultMaxFlows bounds live flows when the config leaves it unset.
const DefaultMaxFlows = 1024

// Registry maps flow IDs to live flows.
type Registry struct {
	lru   *cache.LRU[string, *Flow]
	sfg   singleflight.Group
	build func(id string) *Flow
}

// NewRegistry returns a Registry holding at most limit flows.
func NewRegistry(limit int, build func(id string) *Flow) *Registry {
	if limit < 1 {
		limit = DefaultMaxFlows
	}
	return &Registry{
		lru:   cache.New[string, *Flow](limit, evict),
		build: build,
	}
}

func evict(id string, f *Flow) {
	f.Close()
	metrics.ActiveFlows.Dec()
	metrics.FlowEvictTotal.Inc()
	zap.S().Debugw("auth flow closed", "flow", id)
}

// Get returns the flow for id, building it on a miss.
func (r *Registry) Get(id string) *Flow {
	if f, ok := r.lru.Get(id); ok {
		return f
	}
	v, _, _ := r.sfg.Do(id, func() (any, error) {
		// Double-check after singleflight barrier.
		if f, ok := r.lru.Get(id); ok {
			return f, nil
		}
		f := r.build(id)
		r.lru.Add(id, f)
		metrics.ActiveFlows.Inc()
		return f, nil
	})
	return v.(*Flow)
}

// Lookup returns the flow for id without building one.
func (r *Registry) Lookup(id string) (*Flow, bool) { return r.lru.Get(id) }

// Remove closes and forgets the flow for id.
func (r *Registry) Remove(id string) { r.lru.Remove(id) }

// Close closes every live flow.
func (r *Registry) Close() { r.lru.Purge() }

// Len reports the number of live flows.
func (r *Registry) Len() int { return r.lru.Len() }
