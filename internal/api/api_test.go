package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/filenest/backend/internal/catalog"
	"github.com/filenest/backend/internal/metrics"
	"github.com/filenest/backend/internal/mock"
	"github.com/filenest/backend/internal/snapshot"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSessions int

func (n fixedSessions) Len() int { return int(n) }

type failingProbe struct{}

func (failingProbe) Sample(context.Context) (snapshot.HostStats, error) {
	return snapshot.HostStats{}, errors.New("proc unavailable")
}

func newTestRouter(t *testing.T) (http.Handler, *catalog.Store) {
	t.Helper()
	store := catalog.NewStore()
	mock.Seed(store)
	source := snapshot.NewCatalogSource(store, nil, 3, clockwork.NewFakeClock())
	return NewRouter(Deps{
		Store:          store,
		Source:         source,
		Sessions:       fixedSessions(2),
		AllowedOrigins: []string{"http://localhost:5173"},
	}), store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRoot(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Welcome to FileNest API","version":"1.0.0"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":2}`, rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/peers", "")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "default-src 'self'", rec.Header().Get("Content-Security-Policy"))
}

func TestCORS(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/peers", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/peers", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSearch(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"no filters", "", []string{"1", "2", "3"}},
		{"name match", "?q=react", []string{"1"}},
		{"tag match is case insensitive", "?q=TUTORIAL", []string{"2"}},
		{"file type", "?file_type=videos", []string{"2"}},
		{"all file types", "?file_type=all", []string{"1", "2", "3"}},
		{"size range", "?size_min=60000&size_max=3000000", []string{"1"}},
		{"no match", "?q=nothing-like-this", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/v1/search"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decode[searchResponse](t, rec)
			ids := []string{}
			for _, f := range resp.Results {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), resp.Total)
		})
	}
}

func TestSearchEmptyResultsIsArray(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/search?q=zzz", "")
	assert.JSONEq(t, `{"results":[],"total":0}`, rec.Body.String())
}

func TestSearchRejectsBadSize(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, q := range []string{"size_min=big", "size_max=1.5"} {
		rec := do(t, h, http.MethodGet, "/api/v1/search?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, decode[map[string]string](t, rec)["detail"], "must be an integer")
	}
}

func TestSuggestions(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/suggestions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"suggestions":["react","machine learning","typescript","python","javascript"]}`,
		rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/suggestions?q=script", "")
	assert.JSONEq(t, `{"suggestions":["typescript","javascript"]}`, rec.Body.String())
}

func TestNetworkStats(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/network/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[networkStatsResponse](t, rec)
	assert.Equal(t, 3, resp.TotalPeers)
	assert.Equal(t, 2, resp.OnlinePeers)
	assert.Equal(t, 3, resp.TotalFiles)
	assert.Equal(t, 2, resp.AvailableFiles)
	assert.Equal(t, 66, resp.NetworkHealth)
	assert.Equal(t, 120, resp.AvgResponseTime)
	assert.Equal(t, snapshot.StatusHealthy, resp.Status)
	assert.Empty(t, resp.HostError)
}

func TestNetworkStatsReportsProbeFailure(t *testing.T) {
	store := catalog.NewStore()
	mock.Seed(store)
	source := snapshot.NewCatalogSource(store, failingProbe{}, 3, clockwork.NewFakeClock())
	h := NewRouter(Deps{Store: store, Source: source})

	rec := do(t, h, http.MethodGet, "/api/v1/network/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[networkStatsResponse](t, rec)
	assert.Equal(t, snapshot.StatusDegraded, resp.Status)
	assert.Equal(t, "proc unavailable", resp.HostError)
	assert.Equal(t, 3, resp.TotalFiles, "catalog numbers survive a probe failure")
}

func TestNetworkStatsSourceError(t *testing.T) {
	source := snapshot.SourceFunc(func(context.Context) (snapshot.NetworkSnapshot, error) {
		return snapshot.NetworkSnapshot{}, errors.New("boom")
	})
	h := NewRouter(Deps{Store: catalog.NewStore(), Source: source})

	rec := do(t, h, http.MethodGet, "/api/v1/network/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPeers(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/peers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[map[string][]map[string]any](t, rec)
	require.Len(t, resp["peers"], 3)
	assert.Equal(t, "peer-1", resp["peers"][0]["id"])
	assert.Equal(t, "online", resp["peers"][0]["status"])
	assert.Equal(t, "offline", resp["peers"][2]["status"])
	assert.EqualValues(t, 95, resp["peers"][0]["latencyMs"])
}

func TestUpload(t *testing.T) {
	h, store := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/files/upload", `{"name":"notes.md","type":"text/markdown","size":2048,"tags":["notes"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string       `json:"message"`
		File    uploadedFile `json:"file"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "File uploaded successfully", resp.Message)
	assert.Equal(t, "notes.md", resp.File.Name)
	assert.Equal(t, "text/markdown", resp.File.Type)
	assert.Equal(t, int64(2048), resp.File.Size)
	assert.Equal(t, "uploaded", resp.File.Status)

	stored, ok := store.File(resp.File.ID)
	require.True(t, ok)
	assert.Equal(t, catalog.LocalPeer, stored.Peer)
	assert.Equal(t, 4, store.Counts().TotalFiles)
}

func TestUploadWithoutBodyUsesDefaults(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/files/upload", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		File uploadedFile `json:"file"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "uploaded_file.txt", resp.File.Name)
	assert.Equal(t, "text/plain", resp.File.Type)
	assert.Equal(t, int64(1024), resp.File.Size)
}

func TestUploadRejectsMalformedBody(t *testing.T) {
	h, store := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/files/upload", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 3, store.Counts().TotalFiles)
}

func TestUploadShowsInNextSnapshot(t *testing.T) {
	h, _ := newTestRouter(t)

	do(t, h, http.MethodPost, "/api/v1/files/upload", "")
	rec := do(t, h, http.MethodGet, "/api/v1/network/stats", "")
	assert.Equal(t, 4, decode[networkStatsResponse](t, rec).TotalFiles)
}

func TestDownload(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/files/2/download", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message     string       `json:"message"`
		File        catalog.File `json:"file"`
		DownloadURL string       `json:"downloadUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Download started", resp.Message)
	assert.Equal(t, "Machine Learning Tutorial.mp4", resp.File.Name)
	assert.Equal(t, "/download/2", resp.DownloadURL)
}

func TestDownloadMissingFile(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/files/missing/download", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"File not found"}`, rec.Body.String())
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	h, _ := newTestRouter(t)
	counter := metrics.HTTPRequestsTotal.WithLabelValues("/api/v1/files/{id}/download", "404")
	before := testutil.ToFloat64(counter)

	do(t, h, http.MethodGet, "/api/v1/files/a/download", "")
	do(t, h, http.MethodGet, "/api/v1/files/b/download", "")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodGet, "/", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "filenest_http_requests_total")
}
