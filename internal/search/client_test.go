package search

import (
	"bufio"
	"context"
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

type fakeES struct {
	mu       sync.Mutex
	bulkDocs []string
	docs     map[string]string
	queries  []map[string]any
}

func (f *fakeES) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				f.bulkDocs = append(f.bulkDocs, line)
			}
		}
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		var q map[string]any
		_ = json.NewDecoder(r.Body).Decode(&q)
		f.queries = append(f.queries, q)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_id":"p1","_source":{"name":"Latte"}}]}}`))
	case r.Method != http.MethodDelete && strings.Contains(r.URL.Path, "/_doc/"):
		body, _ := io.ReadAll(r.Body)
		if f.docs == nil {
			f.docs = map[string]string{}
		}
		f.docs[r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]] = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodPut:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestClient(t *testing.T) (*Client, *fakeES) {
	t.Helper()
	fake := &fakeES{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	c, err := NewClient(&Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return c, fake
}

func TestCreateIndexToleratesExisting(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.CreateIndex(context.Background(), "products", `{"mappings":{}}`))
}

func TestBulkIndexWritesActionAndSourceLines(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.BulkIndex(context.Background(), "products", map[string]any{
		"p1": map[string]string{"name": "Latte"},
		"p2": map[string]string{"name": "Mocha"},
	})
	require.NoError(t, err)
	assert.Len(t, fake.bulkDocs, 4)
}

func TestSearchDecodesHits(t *testing.T) {
	c, fake := newTestClient(t)

	res, err := c.Search(context.Background(), "products", map[string]any{"query": map[string]any{"match_all": map[string]any{}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Hits.Total.Value)
	require.Len(t, res.Hits.Hits, 1)
	assert.JSONEq(t, `{"name":"Latte"}`, string(res.Hits.Hits[0].Source))
	assert.Len(t, fake.queries, 1)
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.Delete(context.Background(), "products", "missing"))
}

func TestIndexWritesOneDocument(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.Index(context.Background(), "products", "p9", map[string]string{"name": "Cortado"}))
	assert.JSONEq(t, `{"name":"Cortado"}`, fake.docs["p9"])
}
