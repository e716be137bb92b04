package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/orchestrator"
	"go-hopeforjob-automation/internal/queue"
	"go-hopeforjob-automation/internal/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	err       error
	cancelErr error

	userID   string
	platform string
	criteria automator.Criteria
	jobIDs   []string
	bulk     orchestrator.BulkConfig
	cancel   string
}

func (f *fakeDispatcher) DispatchScrape(ctx context.Context, userID, platform string, c automator.Criteria) (string, error) {
	f.userID, f.platform, f.criteria = userID, platform, c
	return "s-scrape", f.err
}

func (f *fakeDispatcher) DispatchApply(ctx context.Context, userID, jobID string) (string, error) {
	f.userID, f.jobIDs = userID, []string{jobID}
	return "s-apply", f.err
}

func (f *fakeDispatcher) DispatchBulkApply(ctx context.Context, userID string, jobIDs []string, cfg orchestrator.BulkConfig) (string, error) {
	f.userID, f.jobIDs, f.bulk = userID, jobIDs, cfg
	return "s-bulk", f.err
}

func (f *fakeDispatcher) DispatchCleanup() (string, error) {
	return "t-cleanup", f.err
}

func (f *fakeDispatcher) Cancel(ctx context.Context, sessionID string) error {
	f.cancel = sessionID
	return f.cancelErr
}

func setupRouter(d Dispatcher, sessions SessionReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	l := logrus.New()
	l.SetOutput(io.Discard)
	r := gin.New()
	NewHandler(d, sessions, logrus.NewEntry(l)).Register(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r := setupRouter(&fakeDispatcher{}, memory.New())
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestScrape(t *testing.T) {
	d := &fakeDispatcher{}
	r := setupRouter(d, memory.New())

	w := do(r, http.MethodPost, "/api/automation/scrape", `{"user_id":"u1","platform":"linkedin","keywords":"golang","location":"Hanoi","max_pages":2}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "s-scrape", body["session_id"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "linkedin", d.platform)
	assert.Equal(t, automator.Criteria{Keywords: "golang", Location: "Hanoi", MaxPages: 2}, d.criteria)
}

func TestScrape_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"user_id":`},
		{"missing keywords", `{"user_id":"u1","platform":"linkedin"}`},
		{"missing user", `{"platform":"linkedin","keywords":"go"}`},
		{"too many pages", `{"user_id":"u1","platform":"linkedin","keywords":"go","max_pages":99}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			r := setupRouter(d, memory.New())
			w := do(r, http.MethodPost, "/api/automation/scrape", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, d.userID, "dispatcher must not be called")
		})
	}
}

func TestDispatchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported platform", fmt.Errorf("%w: %q", automator.ErrUnsupportedPlatform, "monster"), http.StatusBadRequest},
		{"queue full", fmt.Errorf("failed to queue scrape: %w", queue.ErrQueueFull), http.StatusServiceUnavailable},
		{"no queue", orchestrator.ErrNoQueue, http.StatusServiceUnavailable},
		{"unexpected", fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(&fakeDispatcher{err: tt.err}, memory.New())
			w := do(r, http.MethodPost, "/api/automation/scrape", `{"user_id":"u1","platform":"monster","keywords":"go"}`)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, decode(t, w)["error"], tt.err.Error())
		})
	}
}

func TestApply(t *testing.T) {
	d := &fakeDispatcher{}
	r := setupRouter(d, memory.New())

	w := do(r, http.MethodPost, "/api/automation/apply", `{"user_id":"u1","job_id":"j1"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "s-apply", decode(t, w)["session_id"])
	assert.Equal(t, []string{"j1"}, d.jobIDs)

	w = do(r, http.MethodPost, "/api/automation/apply", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkApply(t *testing.T) {
	d := &fakeDispatcher{}
	r := setupRouter(d, memory.New())

	w := do(r, http.MethodPost, "/api/automation/bulk-apply", `{"user_id":"u1","job_ids":["j1","j2"],"delay_between_applications":5}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"j1", "j2"}, d.jobIDs)
	require.NotNil(t, d.bulk.DelaySeconds)
	assert.Equal(t, 5, *d.bulk.DelaySeconds)

	for _, body := range []string{
		`{"user_id":"u1","job_ids":[]}`,
		`{"user_id":"u1","job_ids":["j1",""]}`,
		`{"user_id":"u1","job_ids":["j1"],"delay_between_applications":-1}`,
	} {
		w = do(r, http.MethodPost, "/api/automation/bulk-apply", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCleanup(t *testing.T) {
	r := setupRouter(&fakeDispatcher{}, memory.New())
	w := do(r, http.MethodPost, "/api/automation/cleanup", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "t-cleanup", decode(t, w)["task_id"])
}

func TestGetSession(t *testing.T) {
	st := memory.New()
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	done := started.Add(90 * time.Second)
	sess := &models.AutomationSession{
		UserID:                "u1",
		Kind:                  models.KindBulkApply,
		Status:                models.SessionCompleted,
		JobsProcessed:         4,
		ApplicationsSubmitted: 3,
		StartedAt:             &started,
		CompletedAt:           &done,
	}
	require.NoError(t, st.CreateSession(context.Background(), sess))
	r := setupRouter(&fakeDispatcher{}, st)

	w := do(r, http.MethodGet, "/api/automation/sessions/"+sess.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 75.0, body["success_rate"])
	assert.Equal(t, 90.0, body["duration_sec"])
	session := body["session"].(map[string]any)
	assert.Equal(t, "completed", session["status"])

	w = do(r, http.MethodGet, "/api/automation/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelSession(t *testing.T) {
	d := &fakeDispatcher{}
	r := setupRouter(d, memory.New())
	w := do(r, http.MethodPost, "/api/automation/sessions/s1/cancel", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "s1", d.cancel)

	d.cancelErr = orchestrator.ErrNotCancellable
	w = do(r, http.MethodPost, "/api/automation/sessions/s1/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}
