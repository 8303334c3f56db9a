package opensearch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster is a minimal OpenSearch stand-in recording every request
type fakeCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
	indices  map[string]bool
	search   string
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeCluster(t *testing.T) (*fakeCluster, *httptest.Server) {
	t.Helper()
	fc := &fakeCluster{indices: map[string]bool{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fc.mu.Lock()
		fc.requests = append(fc.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		fc.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		index := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")[0]

		switch {
		case r.URL.Path == "/":
			_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
		case r.Method == http.MethodHead:
			fc.mu.Lock()
			exists := fc.indices[index]
			fc.mu.Unlock()
			if !exists {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPut:
			fc.mu.Lock()
			fc.indices[index] = true
			fc.mu.Unlock()
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		case strings.HasSuffix(r.URL.Path, "/_search"):
			_, _ = w.Write([]byte(fc.search))
		default:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCluster) requestsTo(method, pathPrefix string) []recordedRequest {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	var out []recordedRequest
	for _, r := range fc.requests {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			out = append(out, r)
		}
	}
	return out
}

func TestNewClient_CreatesIndices(t *testing.T) {
	fc, srv := newFakeCluster(t)

	client, err := NewClient(Config{URL: srv.URL, Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, client.GetClient())
	assert.True(t, client.IsEnabled())

	assert.Len(t, fc.requestsTo(http.MethodPut, "/"+SystemLogIndex), 1)
	assert.Len(t, fc.requestsTo(http.MethodPut, "/"+GatewayCallIndex), 1)
}

func TestNewClient_DisabledSkipsSetup(t *testing.T) {
	fc, srv := newFakeCluster(t)

	client, err := NewClient(Config{URL: srv.URL, Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.Empty(t, fc.requestsTo(http.MethodPut, "/"))
}

func TestNewClient_ExistingIndicesAreKept(t *testing.T) {
	fc, srv := newFakeCluster(t)
	fc.indices[SystemLogIndex] = true
	fc.indices[GatewayCallIndex] = true

	_, err := NewClient(Config{URL: srv.URL, Enabled: true})
	require.NoError(t, err)
	assert.Empty(t, fc.requestsTo(http.MethodPut, "/"))
}

func TestMappingsAreValidJSON(t *testing.T) {
	for name, mapping := range map[string]string{"system": systemLogMapping, "gateway": gatewayCallMapping} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, json.Valid([]byte(mapping)))
		})
	}
}
