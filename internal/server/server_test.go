package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marineprep/internal/config"
	"marineprep/internal/metrics"
	"marineprep/internal/runlog"
)

type staticRecorder struct {
	runs  []runlog.Run
	err   error
	limit int
}

func (r *staticRecorder) Record(context.Context, *runlog.Run) error { return nil }

func (r *staticRecorder) Recent(_ context.Context, limit int) ([]runlog.Run, error) {
	r.limit = limit
	return r.runs, r.err
}

func newTestServer(run RunFunc, rec runlog.Recorder) *Server {
	return New(config.ServerConfig{Bind: ":0", RunTimeoutMinutes: 1}, zap.NewNop().Sugar(), run, rec)
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil, nil)
	rec := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestPrepCycle(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 1)
	s := newTestServer(func(ctx context.Context, cdate string) error {
		started <- cdate
		<-release
		return nil
	}, nil)

	rec := do(s, http.MethodPost, "/api/prep-cycle", `{"cdate":"2022032800"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "2022032800", body["cdate"])

	select {
	case got := <-started:
		assert.Equal(t, "2022032800", got)
	case <-time.After(5 * time.Second):
		t.Fatal("prep did not start")
	}
	assert.Equal(t, "2022032800", s.Running())

	rec = do(s, http.MethodPost, "/api/prep-cycle", `{"cdate":"2022032806"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrRunInProgress.Error())

	close(release)
	s.wg.Wait()
	assert.Equal(t, "", s.Running())

	rec = do(s, http.MethodPost, "/api/prep-cycle", `{"cdate":"2022032806"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	<-started
	s.wg.Wait()
}

func TestPrepCycleFailureReleasesLock(t *testing.T) {
	s := newTestServer(func(context.Context, string) error {
		return errors.New("failed at step 3 (Stage Observations)")
	}, nil)

	require.Equal(t, http.StatusAccepted, do(s, http.MethodPost, "/api/prep-cycle", `{"cdate":"2022032800"}`).Code)
	s.wg.Wait()
	assert.Equal(t, "", s.Running())
}

func TestPrepCycleBadRequest(t *testing.T) {
	s := newTestServer(func(context.Context, string) error {
		t.Error("run must not be called")
		return nil
	}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"cdate":`},
		{"missing cdate", `{}`},
		{"short cdate", `{"cdate":"20220328"}`},
		{"bad hour", `{"cdate":"2022032825"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/prep-cycle", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestGetRuns(t *testing.T) {
	when := time.Date(2022, 3, 28, 1, 0, 0, 0, time.UTC)
	rec := &staticRecorder{runs: []runlog.Run{{ID: 2, Cycle: "2022032800", Status: runlog.StatusSucceeded, States: 6, StartedAt: when}}}
	s := newTestServer(nil, rec)

	resp := do(s, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var runs []runlog.Run
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "2022032800", runs[0].Cycle)
	assert.Equal(t, defaultRunsLimit, rec.limit)

	do(s, http.MethodGet, "/api/runs?limit=10000", "")
	assert.Equal(t, maxRunsLimit, rec.limit)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/runs?limit=abc", "").Code)

	rec.err = errors.New("connection refused")
	assert.Equal(t, http.StatusInternalServerError, do(s, http.MethodGet, "/api/runs", "").Code)
}

func TestGetRunsWithoutDatabase(t *testing.T) {
	s := newTestServer(nil, nil)
	resp := do(s, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())
}

func TestMetrics(t *testing.T) {
	metrics.ObserveRun(nil)
	s := newTestServer(nil, nil)
	resp := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "marineprep_prep_runs_total")
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "\x1b[32m"},
		{302, "\x1b[36m"},
		{409, "\x1b[33m"},
		{500, "\x1b[31m"},
	}
	for _, tt := range tests {
		if got := statusColor(tt.status); got != tt.want {
			t.Errorf("statusColor(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
