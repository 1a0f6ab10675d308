package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/depview/pkg/errors"
)

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://ci", "ci.example.com"} {
		if _, err := New(raw); err == nil {
			t.Errorf("New(%q) should fail", raw)
		}
	}
}

func TestGraphURL(t *testing.T) {
	c, err := New("http://ci.example.com/view/All/depview")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.GraphURL(); got != "http://ci.example.com/view/All/depview/graph.json" {
		t.Errorf("GraphURL() = %q", got)
	}
}

func TestEdgePath(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"a", "b", "edge/a/b"},
		{"team/build", "test job", "edge/team%2Fbuild/test%20job"},
		{"50%", "x?y", "edge/50%25/x%3Fy"},
		{".", "b", "edge/%2E/b"},
		{"..", "..", "edge/%2E%2E/%2E%2E"},
		{"a.b", "...", "edge/a.b/..."},
	}
	for _, tt := range tests {
		if got := EdgePath(tt.from, tt.to); got != tt.want {
			t.Errorf("EdgePath(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestFetchGraph(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/depview/graph.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"clusters": [{"0": ["a"], "1": ["b"]}], "edges": [{"from": "a", "to": "b", "type": "dep"}]}`))
	}))
	defer server.Close()

	c, err := New(server.URL+"/depview", WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}
	d, err := c.FetchGraph(context.Background())
	if err != nil {
		t.Fatalf("FetchGraph: %v", err)
	}
	if d.NodeCount() != 2 || d.EdgeCount() != 1 {
		t.Errorf("got %d nodes / %d edges", d.NodeCount(), d.EdgeCount())
	}
}

func TestFetchGraphErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    errors.Code
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			code:    errors.ErrCodeNotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			code: errors.ErrCodeBackendRejected,
		},
		{
			name: "malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"clusters": [{"0": ["a", "a"]}], "edges": []}`))
			},
			code: errors.ErrCodeInvalidGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c, _ := New(server.URL, WithHTTPClient(server.Client()))
			_, err := c.FetchGraph(context.Background())
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestPutEdge(t *testing.T) {
	var gotMethod, gotURI, gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURI = r.RequestURI
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
	}))
	defer server.Close()

	c, _ := New(server.URL+"/view/depview/", WithHTTPClient(server.Client()), WithToken("s3cret"))
	if err := c.PutEdge(context.Background(), "team/build", "test job"); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotURI != "/view/depview/edge/team%2Fbuild/test%20job" {
		t.Errorf("request URI = %s", gotURI)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestDotIdentitiesStayUnderBase(t *testing.T) {
	var uris []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uris = append(uris, r.Method+" "+r.RequestURI)
	}))
	defer server.Close()

	c, _ := New(server.URL+"/job/x/depgraph-view/", WithHTTPClient(server.Client()))
	ctx := context.Background()
	if err := c.PutEdge(ctx, "..", "b"); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}
	if err := c.DeleteEdge(ctx, ".", "b"); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}

	want := []string{
		"PUT /job/x/depgraph-view/edge/%2E%2E/b",
		"DELETE /job/x/depgraph-view/edge/%2E/b",
	}
	if len(uris) != len(want) {
		t.Fatalf("requests = %v, want %v", uris, want)
	}
	for i := range want {
		if uris[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, uris[i], want[i])
		}
	}
}

func TestDeleteEdgeFailureSurfacesBody(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("job 'b' is running\n"))
	}))
	defer server.Close()

	c, _ := New(server.URL, WithHTTPClient(server.Client()))
	err := c.DeleteEdge(context.Background(), "a", "b")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeBackendRejected) {
		t.Errorf("code = %s, want BACKEND_REJECTED", errors.GetCode(err))
	}
	if got := errors.UserMessage(err); got != "job 'b' is running" {
		t.Errorf("UserMessage = %q", got)
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want exactly 1 (no retries)", calls.Load())
	}
}

func TestPutEdgeEmptyBodyUsesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c, _ := New(server.URL, WithHTTPClient(server.Client()))
	err := c.PutEdge(context.Background(), "a", "b")
	if got := errors.UserMessage(err); got != "403 Forbidden" {
		t.Errorf("UserMessage = %q, want %q", got, "403 Forbidden")
	}
}

func TestPutEdgeRejectsBadIdentity(t *testing.T) {
	c, _ := New("http://localhost:1")
	err := c.PutEdge(context.Background(), "", "b")
	if !errors.Is(err, errors.ErrCodeInvalidIdentity) {
		t.Errorf("err = %v, want INVALID_IDENTITY", err)
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, _ := New(url, WithTimeout(time.Second))
	err := c.PutEdge(context.Background(), "a", "b")
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("err = %v, want NETWORK_ERROR", err)
	}
}
