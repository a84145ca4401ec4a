package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobayes/adapters/memory"
	"gobayes/domain/core"
	"gobayes/domain/evidence"
	"gobayes/internal/pipeline"
	"gobayes/internal/studies"
	"gobayes/ports"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	c, err := studies.Default()
	require.NoError(t, err)
	s := NewServer(c, memory.NewLedger(0), pipeline.Options{Seed: 42})
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthAndStudies(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"studies":11`)

	w = do(t, s, http.MethodGet, "/api/v1/studies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []studySummary
	decode(t, w, &list)
	require.Len(t, list, 11)
	assert.Equal(t, "ci_decay", list[2].Name)
	require.NotNil(t, list[2].AssertedLR)
	assert.Equal(t, 1e6, *list[2].AssertedLR)

	w = do(t, s, http.MethodGet, "/api/v1/studies/kmc_reflectance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"lattice"`)

	w = do(t, s, http.MethodGet, "/api/v1/studies/turin", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRunStudy(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/studies/sudarium/run?prior=skeptical", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result evidence.StudyResult
	decode(t, w, &result)
	assert.Equal(t, evidence.StatusOK, result.Status)
	assert.InEpsilon(t, 2.376e7, float64(result.LR), 1e-9)
	require.Len(t, result.Posteriors, 1)
	assert.Equal(t, "skeptical", result.Posteriors[0].Prior)

	w = do(t, s, http.MethodPost, "/api/v1/studies/sudarium/run?seed=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/studies/sudarium/run?prior=-3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunsAndReports(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/report", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	seed := int64(7)
	w = do(t, s, http.MethodPost, "/api/v1/runs", runRequest{
		Studies: []string{"superficiality_3d", "forensic_trauma"},
		Seed:    &seed,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var report evidence.Report
	decode(t, w, &report)
	assert.InEpsilon(t, 171.0*189.0, float64(report.CombinedLR), 1e-12)
	assert.Len(t, report.Posteriors, 3)
	require.NotEmpty(t, report.RunID)

	w = do(t, s, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []ports.RunSummary
	decode(t, w, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, 2, runs[0].Included)

	w = do(t, s, http.MethodGet, "/api/v1/runs/"+report.RunID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = do(t, s, http.MethodGet, "/api/v1/report", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/studies/forensic_trauma/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []evidence.Record
	decode(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, evidence.LikelihoodRatio(189), history[0].LR)

	w = do(t, s, http.MethodGet, "/api/v1/runs?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRun_UnknownStudy(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/runs", runRequest{Studies: []string{"nope"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPosterior(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/posterior?lr=100&prior=1:100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Posteriors []evidence.Posterior `json:"posteriors"`
	}
	decode(t, w, &body)
	require.Len(t, body.Posteriors, 1)
	assert.InDelta(t, 0.5, body.Posteriors[0].Probability, 1e-12)

	w = do(t, s, http.MethodGet, "/api/v1/posterior?lr=9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	require.Len(t, body.Posteriors, 3)
	assert.InDelta(t, 0.9, body.Posteriors[0].Probability, 1e-12)

	w = do(t, s, http.MethodGet, "/api/v1/posterior?lr=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodGet, "/api/v1/posterior", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunPublishesEvents(t *testing.T) {
	s := newTestServer(t)

	events, cancel := s.Hub().Subscribe("")
	defer cancel()
	require.Eventually(t, func() bool { return s.Hub().ClientCount("") == 1 }, time.Second, 5*time.Millisecond)

	w := do(t, s, http.MethodPost, "/api/v1/runs", runRequest{Studies: []string{"spatial_voc", "c14_reappraisal"}})
	require.Equal(t, http.StatusCreated, w.Code)

	var got []RunEvent
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case e := <-events:
			got = append(got, e)
		case <-timeout:
			t.Fatalf("received %d of 3 events", len(got))
		}
	}

	finished := 0
	for _, e := range got {
		if e.EventType == "study_finished" {
			finished++
			assert.Equal(t, string(evidence.StatusOK), e.Status)
		}
	}
	assert.Equal(t, 2, finished)
	last := got[len(got)-1]
	assert.Equal(t, "run_finished", last.EventType)
	assert.Equal(t, 1.0, last.Progress)
}

func TestSSEEventBroadcaster_FiltersByRun(t *testing.T) {
	hub := NewSSEHub()
	defer hub.Close()

	mine, cancelMine := hub.Subscribe("run-a")
	defer cancelMine()
	require.Eventually(t, func() bool { return hub.ClientCount("run-a") == 1 }, time.Second, 5*time.Millisecond)

	b := NewSSEEventBroadcaster(hub)
	b.StudyFinished(core.RunID("run-b"), evidence.StudyResult{Study: "x", Status: evidence.StatusUnavailable}, 1, 2)
	b.StudyFinished(core.RunID("run-a"), evidence.StudyResult{Study: "y", Status: evidence.StatusUnavailable, Code: "FIT_CONVERGENCE"}, 1, 4)

	select {
	case e := <-mine:
		assert.Equal(t, "y", e.Study)
		assert.Equal(t, 0.25, e.Progress)
		assert.Equal(t, "FIT_CONVERGENCE", e.Data["code"])
	case <-time.After(time.Second):
		t.Fatal("no event for run-a")
	}
}

func TestRequestsShareHeavyLimiter(t *testing.T) {
	s := newTestServer(t)

	seed := int64(9)
	a, err := s.options(nil, "")
	require.NoError(t, err)
	b, err := s.options(&seed, "skeptical")
	require.NoError(t, err)
	require.NotNil(t, a.Heavy)
	assert.Same(t, a.Heavy, b.Heavy)

	// a lattice run on another request holds the only slot
	require.True(t, a.Heavy.TryAcquire(1))
	defer a.Heavy.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/studies/kmc_reflectance/run", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	var result evidence.StudyResult
	decode(t, w, &result)
	assert.Equal(t, evidence.StatusUnavailable, result.Status)
	assert.Contains(t, result.Message, context.DeadlineExceeded.Error())
}
