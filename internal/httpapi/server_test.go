package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"semsearch/config"
	"semsearch/internal/adapter/memstore"
	"semsearch/internal/domain"
	"semsearch/internal/logging"
	"semsearch/internal/usecase"
)

type fixedEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *fixedEmbedder) Dimension() int    { return 3 }
func (e *fixedEmbedder) ModelName() string { return "fixed" }

func newTestServer(t *testing.T, emb *fixedEmbedder) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.MaxBodyBytes = 1024
	svc := usecase.NewService(cfg, emb, memstore.NewMemoryStore(), logging.Discard())
	return NewServer(svc, cfg.Server, logging.Discard()).Handler()
}

func catDog() *fixedEmbedder {
	return &fixedEmbedder{vectors: map[string][]float32{
		"Loves cats": {1, 0, 0},
		"Loves dogs": {0, 1, 0},
		"kitten":     {0.9, 0.1, 0},
	}}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const catDogUsers = `{"users":[
	{"name":"Cat Person","email":"cat@example.com","bio":"Loves cats"},
	{"name":"Dog Person","email":"dog@example.com","bio":"Loves dogs"}
]}`

func TestAddAndSearch(t *testing.T) {
	h := newTestServer(t, catDog())

	rec := do(t, h, http.MethodPost, "/add-users", catDogUsers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var added addUsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, 2, added.InsertedCount)
	assert.Equal(t, "Users added successfully", added.Message)

	rec = do(t, h, http.MethodPost, "/search", `{"query":"kitten"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var hits []searchHit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "Cat Person", hits[0].Name)
	assert.InDelta(t, 0.9938837, hits[0].Similarity, 1e-6)
	assert.NotContains(t, rec.Body.String(), "embedding")

	rec = do(t, h, http.MethodPost, "/search", `{"query":"kitten","threshold":-1,"limit":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	assert.Len(t, hits, 1)
}

func TestSearch_EmptyStoreReturnsEmptyArray(t *testing.T) {
	h := newTestServer(t, catDog())

	rec := do(t, h, http.MethodPost, "/search", `{"query":"kitten"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListAndDelete(t *testing.T) {
	h := newTestServer(t, catDog())
	do(t, h, http.MethodPost, "/add-users", catDogUsers)

	rec := do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		TotalUsers int `json:"totalUsers"`
		Users      []struct {
			ID        string    `json:"id"`
			Name      string    `json:"name"`
			Embedding []float32 `json:"embedding"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.TotalUsers)
	require.Len(t, list.Users, 2)
	assert.Equal(t, "Cat Person", list.Users[0].Name)
	assert.Len(t, list.Users[0].Embedding, 3)

	rec = do(t, h, http.MethodDelete, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"All users deleted successfully","deletedCount":2}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/users", "")
	assert.JSONEq(t, `{"totalUsers":0,"users":[]}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	cases := []struct {
		name      string
		emb       *fixedEmbedder
		method    string
		path      string
		body      string
		status    int
		kind      string
		retryable bool
	}{
		{"missing query", catDog(), http.MethodPost, "/search", `{}`, http.StatusBadRequest, "InvalidInput", false},
		{"bad threshold", catDog(), http.MethodPost, "/search", `{"query":"kitten","threshold":2}`, http.StatusBadRequest, "InvalidInput", false},
		{"malformed json", catDog(), http.MethodPost, "/search", `{"query":`, http.StatusBadRequest, "InvalidInput", false},
		{"users not array", catDog(), http.MethodPost, "/add-users", `{"people":[]}`, http.StatusBadRequest, "InvalidInput", false},
		{"empty bio", catDog(), http.MethodPost, "/add-users", `{"users":[{"name":"a","email":"b","bio":""}]}`, http.StatusBadRequest, "InvalidInput", false},
		{"body too large", catDog(), http.MethodPost, "/search", `{"query":"` + strings.Repeat("x", 2048) + `"}`, http.StatusBadRequest, "InvalidInput", false},
		{
			"embedding failure",
			&fixedEmbedder{err: &domain.Error{Kind: domain.KindEmbedding, Msg: "model crashed"}},
			http.MethodPost, "/search", `{"query":"kitten"}`,
			http.StatusServiceUnavailable, "EmbeddingError", true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, tc.emb)
			rec := do(t, h, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.kind, resp.Kind)
			assert.Equal(t, tc.retryable, resp.Retryable)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestSearch_CanceledRequestIsNotRetryable(t *testing.T) {
	h := newTestServer(t, catDog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"kitten"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "StoreUnavailable", resp.Kind)
	assert.False(t, resp.Retryable)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(domain.KindStoreWrite))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.KindStoreUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindModelLoad))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindUnknown))
}

func TestCORS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	svc := usecase.NewService(cfg, catDog(), memstore.NewMemoryStore(), logging.Discard())
	h := NewServer(svc, cfg.Server, logging.Discard()).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, catDog())
	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","model":"fixed","dimension":3}`, rec.Body.String())
}

func TestServe_GracefulShutdown(t *testing.T) {
	cfg := config.DefaultConfig()
	svc := usecase.NewService(cfg, catDog(), memstore.NewMemoryStore(), logging.Discard())
	srv := NewServer(svc, cfg.Server, logging.Discard())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
