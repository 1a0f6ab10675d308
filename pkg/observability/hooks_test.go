package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnFetchStart(ctx, "http://ci/view/all/depview/graph.json")
	p.OnFetchComplete(ctx, "http://ci/view/all/depview/graph.json", 12, time.Second, nil)
	p.OnLayoutStart(ctx, "grid", 12)
	p.OnLayoutComplete(ctx, "grid", time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "graph")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "artifact", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "PUT", "ci", "/edge/a/b")
	h.OnResponse(ctx, "PUT", "ci", "/edge/a/b", 200, time.Second)
	h.OnError(ctx, "PUT", "ci", "/edge/a/b", nil)

	// Bridge hooks
	b := NoopBridgeHooks{}
	b.OnEdgeMutation(ctx, "put", time.Second, nil)
	b.OnSession(ctx, true, 1)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}
	if _, ok := Bridge().(NoopBridgeHooks); !ok {
		t.Error("Bridge() should return NoopBridgeHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customBridge := &testBridgeHooks{}
	SetBridgeHooks(customBridge)
	if Bridge() != customBridge {
		t.Error("SetBridgeHooks should set custom hooks")
	}

	Reset()
	if _, ok := Bridge().(NoopBridgeHooks); !ok {
		t.Error("Reset() should restore NoopBridgeHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testCacheHooks{}
	SetCacheHooks(custom)
	SetCacheHooks(nil)

	if Cache() != custom {
		t.Error("SetCacheHooks(nil) should be ignored")
	}
}

func TestMetricsCollect(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics()

	m.OnEdgeMutation(ctx, "put", 10*time.Millisecond, nil)
	m.OnEdgeMutation(ctx, "put", 10*time.Millisecond, errors.New("conflict"))
	m.OnEdgeMutation(ctx, "delete", 10*time.Millisecond, nil)
	m.OnCacheHit(ctx, "graph")
	m.OnCacheSet(ctx, "graph", 512)
	m.OnResponse(ctx, "GET", "ci", "/graph.json", 200, time.Millisecond)
	m.OnSession(ctx, true, 1)

	if got := testutil.ToFloat64(m.edgeMutations.WithLabelValues("put", "failed")); got != 1 {
		t.Errorf("failed puts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.edgeMutations.WithLabelValues("put", "ok")); got != 1 {
		t.Errorf("ok puts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes); got != 512 {
		t.Errorf("cache bytes = %v, want 512", got)
	}
	if got := testutil.ToFloat64(m.sessions.WithLabelValues("edit")); got != 1 {
		t.Errorf("edit sessions = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"depview_edge_mutations_total", "depview_backend_requests_total", "depview_cache_events_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestMetricsInstall(t *testing.T) {
	Reset()
	defer Reset()

	m := NewMetrics()
	m.Install()
	if Bridge() != BridgeHooks(m) {
		t.Error("Install should register bridge hooks")
	}
	if HTTP() != HTTPHooks(m) {
		t.Error("Install should register HTTP hooks")
	}
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testBridgeHooks struct{ NoopBridgeHooks }
