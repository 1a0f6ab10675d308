// Package observability lets libraries report what they do without knowing
// who listens.
//
// Every library-side event goes through one of four hook sets: pipeline
// stages, cache lookups, backend HTTP calls and bridge mutations. Each set
// starts out as a no-op. The depview binary swaps in [Metrics] at startup;
// tests swap in recorders and call [Reset] afterwards.
//
//	m := observability.NewMetrics()
//	m.Install()
//
//	// in library code
//	observability.Cache().OnCacheHit(ctx, cache.KeyTypeLayout)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks observes the fetch, layout and render stages.
type PipelineHooks interface {
	OnFetchStart(ctx context.Context, source string)
	OnFetchComplete(ctx context.Context, source string, nodeCount int, duration time.Duration, err error)

	OnLayoutStart(ctx context.Context, policy string, nodeCount int)
	OnLayoutComplete(ctx context.Context, policy string, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks observes cache lookups and writes. keyType is one of the
// cache.KeyType constants.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks observes calls to the backend. OnError covers transport
// failures only; a non-2xx answer is still a response.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// BridgeHooks observes edge mutations and viewer sessions.
type BridgeHooks interface {
	// OnEdgeMutation fires once per PUT or DELETE, after it returns.
	OnEdgeMutation(ctx context.Context, op string, duration time.Duration, err error)

	// OnSession fires with delta 1 when a session opens and -1 when it closes.
	OnSession(ctx context.Context, edit bool, delta int)
}

type (
	NoopPipelineHooks struct{}
	NoopCacheHooks    struct{}
	NoopHTTPHooks     struct{}
	NoopBridgeHooks   struct{}
)

func (NoopPipelineHooks) OnFetchStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnFetchComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, string, int)                         {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, time.Duration, error)     {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                            {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error)   {}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

func (NoopBridgeHooks) OnEdgeMutation(context.Context, string, time.Duration, error) {}
func (NoopBridgeHooks) OnSession(context.Context, bool, int)                         {}

// slot holds the current hooks of one kind.
type slot[T any] struct {
	mu  sync.RWMutex
	cur T
	def T
}

func newSlot[T any](def T) *slot[T] {
	return &slot[T]{cur: def, def: def}
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *slot[T]) set(h T) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.cur = h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.cur = s.def
	s.mu.Unlock()
}

var (
	pipelineSlot = newSlot[PipelineHooks](NoopPipelineHooks{})
	cacheSlot    = newSlot[CacheHooks](NoopCacheHooks{})
	httpSlot     = newSlot[HTTPHooks](NoopHTTPHooks{})
	bridgeSlot   = newSlot[BridgeHooks](NoopBridgeHooks{})
)

// SetPipelineHooks replaces the pipeline hooks. Nil is ignored, as in all
// setters.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.set(h) }

func SetCacheHooks(h CacheHooks)   { cacheSlot.set(h) }
func SetHTTPHooks(h HTTPHooks)     { httpSlot.set(h) }
func SetBridgeHooks(h BridgeHooks) { bridgeSlot.set(h) }

func Pipeline() PipelineHooks { return pipelineSlot.get() }
func Cache() CacheHooks       { return cacheSlot.get() }
func HTTP() HTTPHooks         { return httpSlot.get() }
func Bridge() BridgeHooks     { return bridgeSlot.get() }

// Reset puts every hook set back to its no-op.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
	bridgeSlot.reset()
}
