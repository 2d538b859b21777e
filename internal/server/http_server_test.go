package server

import (
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salieri-auto/menunav/internal/nav"
)

type fakeController struct {
	stats   nav.Statistics
	stopped int
}

func (f *fakeController) Statistics() nav.Statistics { return f.stats }
func (f *fakeController) StateIDs() []string         { return []string{"play_menu", "start_menu"} }
func (f *fakeController) Stop()                      { f.stopped++ }

type fakeCapturer struct {
	frame *image.Gray
	err   error
}

func (f *fakeCapturer) CaptureFrame() (*image.Gray, error) { return f.frame, f.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, ctrl *fakeController, start func() error) *HttpServer {
	t.Helper()
	s, err := New(discardLogger(), ctrl, &fakeCapturer{frame: image.NewGray(image.Rect(0, 0, 4, 4))}, start)
	require.NoError(t, err)
	return s
}

func TestStatusEndpoint(t *testing.T) {
	ctrl := &fakeController{stats: nav.Statistics{
		RunID:            "run-1",
		Running:          true,
		CurrentState:     "solo_menu",
		TotalTransitions: 3,
	}}
	s := newTestServer(t, ctrl, nil)

	rec := httptest.NewRecorder()
	s.getStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got nav.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, got.Running)
	assert.Equal(t, "solo_menu", got.CurrentState)
}

func TestStatesEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := httptest.NewRecorder()
	s.getStates(rec, httptest.NewRequest(http.MethodGet, "/states", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"states":["play_menu","start_menu"]}`, rec.Body.String())
}

func TestStopRequiresPost(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl, nil)

	rec := httptest.NewRecorder()
	s.postStop(rec, httptest.NewRequest(http.MethodGet, "/stop", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, ctrl.stopped)

	rec = httptest.NewRecorder()
	s.postStop(rec, httptest.NewRequest(http.MethodPost, "/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ctrl.stopped)
}

func TestStartConflictsWhileRunning(t *testing.T) {
	s := newTestServer(t, &fakeController{}, func() error {
		return nav.ErrAlreadyRunning
	})

	rec := httptest.NewRecorder()
	s.postStart(rec, httptest.NewRequest(http.MethodPost, "/start", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")
}

func TestScreenshotEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := httptest.NewRecorder()
	s.getScreenshot(rec, httptest.NewRequest(http.MethodGet, "/screenshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	s.capturer = &fakeCapturer{err: errors.New("window gone")}
	rec = httptest.NewRecorder()
	s.getScreenshot(rec, httptest.NewRequest(http.MethodGet, "/screenshot", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRootRendersDashboard(t *testing.T) {
	ctrl := &fakeController{stats: nav.Statistics{RunID: "run-9", CurrentState: "train_menu"}}
	s := newTestServer(t, ctrl, nil)

	rec := httptest.NewRecorder()
	s.getRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-9")
	assert.Contains(t, rec.Body.String(), "train_menu")
}
