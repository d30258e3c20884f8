package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

type stubPassLister struct {
	recs []harvest.PassRecord
	err  error
}

func (l *stubPassLister) ListPasses(context.Context, int, int) ([]harvest.PassRecord, error) {
	return l.recs, l.err
}

func newTestServer(t *testing.T, status *StatusStore, passes PassLister) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(status, passes, prometheus.NewRegistry(), nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url) // #nosec G107 -- test server URL
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, NewStatusStore(), nil)
	var body map[string]string
	code := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusBeforeFirstPass(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, NewStatusStore(), nil)
	code := getJSON(t, srv.URL+"/status", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatusReflectsPassLifecycle(t *testing.T) {
	t.Parallel()

	store := NewStatusStore()
	srv := newTestServer(t, store, nil)

	started := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	store.PassStarted("pass-1", started)

	var status PassStatus
	code := getJSON(t, srv.URL+"/status", &status)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, status.Running)
	assert.Equal(t, "pass-1", status.PassID)

	store.PassFinished(started.Add(time.Hour), harvest.Counters{Total: 10, Downloaded: 8})
	code = getJSON(t, srv.URL+"/status", &status)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, status.Running)
	assert.Equal(t, 8, status.Counters.Downloaded)
	require.NotNil(t, status.FinishedAt)
}

func TestListPasses(t *testing.T) {
	t.Parallel()

	lister := &stubPassLister{recs: []harvest.PassRecord{{ID: "pass-1"}}}
	srv := newTestServer(t, NewStatusStore(), lister)

	var body struct {
		Passes []harvest.PassRecord `json:"passes"`
	}
	code := getJSON(t, srv.URL+"/passes", &body)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Passes, 1)
	assert.Equal(t, "pass-1", body.Passes[0].ID)
}

func TestListPassesUnconfigured(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, NewStatusStore(), nil)
	code := getJSON(t, srv.URL+"/passes", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListPassesStoreError(t *testing.T) {
	t.Parallel()

	lister := &stubPassLister{err: errors.New("connection refused")}
	srv := newTestServer(t, NewStatusStore(), lister)
	code := getJSON(t, srv.URL+"/passes", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, NewStatusStore(), nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, NewStatusStore(), nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
