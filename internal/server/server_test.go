package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/projecthub/internal/backend"
	"github.com/jpalmerr/projecthub/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService is a Service over a real in-memory store. Refresh marks every
// configured endpoint online.
type fakeService struct {
	*store.Store
	refreshed []string
	mu        sync.Mutex
	failWith  error
}

func newFakeService() *fakeService {
	return &fakeService{Store: store.New(backend.NewMemory())}
}

func (f *fakeService) GetAll(ctx context.Context) ([]store.Project, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.List(ctx)
}

func (f *fakeService) Add(ctx context.Context, d store.Draft) (store.Project, error) {
	return f.Create(ctx, d)
}

func (f *fakeService) Remove(ctx context.Context, id string) error {
	return f.Delete(ctx, id)
}

func (f *fakeService) Refresh(ctx context.Context, id string) error {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, id)
	f.mu.Unlock()

	now := time.Now()
	_, err := f.Modify(ctx, id, func(p store.Project) (store.Patch, error) {
		var patch store.Patch
		if p.Local.Configured() {
			patch.Local = &store.Endpoint{URL: p.Local.URL, Status: store.StatusOnline, LastCheck: &now}
		}
		if p.Cloud.Configured() {
			patch.Cloud = &store.Endpoint{URL: p.Cloud.URL, Status: store.StatusOnline, LastCheck: &now}
		}
		return patch, nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (f *fakeService) RefreshMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		all, err := f.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range all {
			ids = append(ids, p.ID)
		}
	}
	for _, id := range ids {
		if err := f.Refresh(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeService) refreshedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...)
}

func (f *fakeService) mustAdd(t *testing.T, d store.Draft) store.Project {
	t.Helper()
	p, err := f.Create(context.Background(), d)
	require.NoError(t, err)
	return p
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// --- REST ---

func TestHealthz(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListProjects(t *testing.T) {
	svc := newFakeService()
	svc.mustAdd(t, store.Draft{Name: "Billing", LocalURL: "http://a"})
	svc.mustAdd(t, store.Draft{Name: "Docs", CloudURL: "http://b"})
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []store.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Billing", got[0].Name)
	assert.Equal(t, "Docs", got[1].Name)
}

func TestListProjects_EmptyIsArray(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())
	rec := do(t, srv, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListProjects_Filters(t *testing.T) {
	svc := newFakeService()
	a := svc.mustAdd(t, store.Draft{Name: "Billing", LocalURL: "http://a"})
	svc.mustAdd(t, store.Draft{Name: "Docs", CloudURL: "http://b"})
	require.NoError(t, svc.Refresh(context.Background(), a.ID))
	srv := New(svc, 0, testLogger())

	tests := []struct {
		path string
		want []string
	}{
		{"/api/projects?q=bill", []string{"Billing"}},
		{"/api/projects?status=online", []string{"Billing"}},
		{"/api/projects?status=pending,offline", []string{"Docs"}},
		{"/api/projects?q=docs&status=online", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var got []store.Project
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			names := make([]string, 0, len(got))
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestListProjects_BadStatus(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())
	rec := do(t, srv, http.MethodGet, "/api/projects?status=asleep", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProjects_StoreFailure(t *testing.T) {
	svc := newFakeService()
	svc.failWith = errors.New("db down")
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodGet, "/api/projects", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestCreateProject(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())

	rec := do(t, srv, http.MethodPost, "/api/projects",
		`{"name":"app","local_url":"http://localhost:3000","cloud_url":""}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got store.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, store.StatusPending, got.Local.Status)
	assert.Equal(t, store.StatusDisabled, got.Cloud.Status)
	assert.Nil(t, got.Cloud.LastCheck)
}

func TestCreateProject_Validation(t *testing.T) {
	svc := newFakeService()
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodPost, "/api/projects", `{"name":"nothing"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "rejected draft must not be persisted")
}

func TestCreateProject_MalformedBody(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())
	rec := do(t, srv, http.MethodPost, "/api/projects", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProject(t *testing.T) {
	svc := newFakeService()
	p := svc.mustAdd(t, store.Draft{Name: "app", LocalURL: "http://a"})
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodGet, "/api/projects/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"app"`)

	rec = do(t, srv, http.MethodGet, "/api/projects/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProject(t *testing.T) {
	svc := newFakeService()
	p := svc.mustAdd(t, store.Draft{Name: "app", LocalURL: "http://a", CloudURL: "http://c"})
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodPatch, "/api/projects/"+p.ID, `{"name":"renamed","cloud_url":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "http://a", got.Local.URL, "absent field must be untouched")
	assert.Equal(t, store.StatusDisabled, got.Cloud.Status)
	assert.Empty(t, got.Cloud.URL)
}

func TestUpdateProject_NotFound(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())
	rec := do(t, srv, http.MethodPatch, "/api/projects/missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProject(t *testing.T) {
	svc := newFakeService()
	p := svc.mustAdd(t, store.Draft{LocalURL: "http://a"})
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodDelete, "/api/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// idempotent
	rec = do(t, srv, http.MethodDelete, "/api/projects/"+p.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRefreshProject(t *testing.T) {
	svc := newFakeService()
	p := svc.mustAdd(t, store.Draft{LocalURL: "http://a"})
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodPost, "/api/projects/"+p.ID+"/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, store.StatusOnline, got.Local.Status)
	assert.NotNil(t, got.Local.LastCheck)

	rec = do(t, srv, http.MethodPost, "/api/projects/missing/refresh", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshMany(t *testing.T) {
	svc := newFakeService()
	a := svc.mustAdd(t, store.Draft{LocalURL: "http://a"})
	b := svc.mustAdd(t, store.Draft{LocalURL: "http://b"})
	srv := New(svc, 0, testLogger())

	rec := do(t, srv, http.MethodPost, "/api/refresh", `{"ids":["`+b.ID+`"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{b.ID}, svc.refreshedIDs())

	// empty body refreshes everything
	rec = do(t, srv, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{b.ID, a.ID, b.ID}, svc.refreshedIDs())
}

func TestMethodNotAllowed(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())
	rec := do(t, srv, http.MethodPut, "/api/projects", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// --- SSE ---

func firstSSEData(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatalf("no SSE data found in response: %s", body)
	return ""
}

func TestHandleSSE_InitialSnapshot(t *testing.T) {
	svc := newFakeService()
	svc.mustAdd(t, store.Draft{Name: "API-1", LocalURL: "http://a"})
	svc.mustAdd(t, store.Draft{Name: "API-2", CloudURL: "http://b"})
	srv := New(svc, 0, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	var got []store.Project
	require.NoError(t, json.Unmarshal([]byte(firstSSEData(t, rec.Body.String())), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "API-1", got[0].Name)
}

// syncRecorder is a ResponseRecorder safe for reading while a handler writes.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	svc := newFakeService()
	srv := New(svc, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// wait for the initial snapshot, which means the handler has subscribed
	require.Eventually(t, func() bool {
		return strings.Contains(rec.body(), "data: ")
	}, time.Second, 10*time.Millisecond)

	svc.mustAdd(t, store.Draft{Name: "NewAPI", LocalURL: "http://new"})

	require.Eventually(t, func() bool {
		return strings.Contains(rec.body(), "NewAPI")
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}
	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

func TestHandleSSE_ThroughRouter(t *testing.T) {
	svc := newFakeService()
	svc.mustAdd(t, store.Draft{Name: "routed", LocalURL: "http://a"})
	srv := New(svc, 0, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "routed")
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       bytes.Buffer
}

func (n *nonFlushWriter) Header() http.Header         { return n.header }
func (n *nonFlushWriter) Write(b []byte) (int, error) { return n.body.Write(b) }
func (n *nonFlushWriter) WriteHeader(statusCode int)  { n.statusCode = statusCode }

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := New(newFakeService(), 0, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	w := &nonFlushWriter{header: make(http.Header)}

	srv.handleSSE(w, req)

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	svc := newFakeService()
	srv := New(svc, 0, testLogger())

	serverCtx, serverCancel := context.WithCancel(context.Background())

	numClients := 10
	var wg sync.WaitGroup
	var startedCount atomic.Int32
	started := make(chan struct{})

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)
			rec := httptest.NewRecorder()

			if startedCount.Add(1) == int32(numClients) {
				close(started)
			}
			srv.handleSSE(rec, req)
		}()
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("clients did not start in time")
	}
	time.Sleep(50 * time.Millisecond)

	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all handlers exited after shutdown")
	}
}

func TestHandleSSE_NoGoroutineLeaks(t *testing.T) {
	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	srv := New(newFakeService(), 0, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+2 { // small tolerance for runtime variance
		t.Errorf("potential goroutine leak: before=%d, after=%d", before, after)
	}
}

// --- Lifecycle ---

func TestStart_ServesAndShutsDown(t *testing.T) {
	svc := newFakeService()
	srv := New(svc, 19311, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))

	resp, err := http.Get("http://127.0.0.1:19311/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.Eventually(t, func() bool {
		_, err := http.Get("http://127.0.0.1:19311/healthz")
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStart_PortInUse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := New(newFakeService(), 19312, testLogger())
	require.NoError(t, first.Start(ctx))

	second := New(newFakeService(), 19312, testLogger())
	err := second.Start(ctx)
	assert.Error(t, err)
}
