package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-catcam/pkg/camera"
	"github.com/teslashibe/go-catcam/pkg/detector"
	"github.com/teslashibe/go-catcam/pkg/effects"
	"github.com/teslashibe/go-catcam/pkg/media"
	"github.com/teslashibe/go-catcam/pkg/ui"
)

type fakeStarter struct {
	mu    sync.Mutex
	calls []media.Size
	err   error
}

func (f *fakeStarter) Start(viewport media.Size) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, viewport)
	return f.err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	catalog, err := effects.CatalogFromDir("/audio", effects.DefaultCueFiles...)
	require.NoError(t, err)
	return NewServer(Config{
		Port:     "0",
		Catalog:  catalog,
		Presets:  camera.Presets(),
		Viewport: media.Size{Width: 1280, Height: 720},
	})
}

func postStart(t *testing.T, s *Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/start", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &out)
	return resp, out
}

func TestStatus_ReflectsSurfaceCalls(t *testing.T) {
	s := newTestServer(t)
	s.SetPageVisible("intro", false)
	s.SetPageVisible("detector", true)
	s.SetEffects(ui.Effects{Cat: true, Detecting: true})
	s.SetBanner(ui.Banner{Supported: true})
	s.SetSession(detector.Snapshot{ID: "abc", State: detector.Running})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var st State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "state", st.Type)
	assert.True(t, st.Pages["detector"])
	assert.False(t, st.Pages["intro"])
	assert.True(t, st.Effects.Cat)
	assert.True(t, st.Banner.Supported)
	require.NotNil(t, st.Session)
	assert.Equal(t, "abc", st.Session.ID)
	assert.Equal(t, detector.Running, st.Session.State)
}

func TestStatus_SessionStateJSON(t *testing.T) {
	s := newTestServer(t)
	s.SetSession(detector.Snapshot{ID: "x", State: detector.Stopped, Error: "boom"})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `"state":"stopped"`)
	assert.Contains(t, string(data), `"error":"boom"`)
}

func TestErrorMessageLogged(t *testing.T) {
	s := newTestServer(t)
	s.SetErrorMessage("")
	s.SetErrorMessage("camera unplugged")

	logs := s.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "error", logs[0].Type)
	assert.Equal(t, "camera unplugged", s.Snapshot().Error)
}

func TestStart_NotConfigured(t *testing.T) {
	s := newTestServer(t)
	resp, _ := postStart(t, s, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStart_Viewports(t *testing.T) {
	tests := []struct {
		name string
		body string
		want media.Size
	}{
		{"default", "", media.Size{Width: 1280, Height: 720}},
		{"explicit", `{"width":800,"height":600}`, media.Size{Width: 800, Height: 600}},
		{"preset", `{"preset":"vga"}`, media.Size{Width: 640, Height: 480}},
		{"preset wins", `{"preset":"portrait","width":1,"height":1}`, media.Size{Width: 720, Height: 1280}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			starter := &fakeStarter{}
			s.SetStarter(starter)

			resp, _ := postStart(t, s, tt.body)
			assert.Equal(t, http.StatusAccepted, resp.StatusCode)
			require.Len(t, starter.calls, 1)
			assert.Equal(t, tt.want, starter.calls[0])
			assert.Equal(t, tt.want, s.Snapshot().Viewport)
		})
	}
}

func TestStart_BadRequests(t *testing.T) {
	for _, body := range []string{`{"preset":"8k"}`, `{"width":-1,"height":10}`, `{"width":`} {
		s := newTestServer(t)
		starter := &fakeStarter{}
		s.SetStarter(starter)

		resp, out := postStart(t, s, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.NotEmpty(t, out["error"], body)
		assert.Empty(t, starter.calls, body)
	}
}

func TestStart_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{detector.ErrSessionActive, http.StatusConflict},
		{&camera.FeatureUnsupportedError{}, http.StatusServiceUnavailable},
		{&camera.AcquisitionError{Cause: fmt.Errorf("permission denied")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		s := newTestServer(t)
		s.SetStarter(&fakeStarter{err: tt.err})

		resp, out := postStart(t, s, "")
		assert.Equal(t, tt.want, resp.StatusCode, tt.err.Error())
		assert.Equal(t, tt.err.Error(), out["error"])
	}
}

func TestCuesAndPresets(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/cues", nil))
	require.NoError(t, err)
	var cues []effects.Cue
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cues))
	require.Len(t, cues, 5)
	assert.Equal(t, "cat", cues[0].Name)
	assert.Equal(t, "/audio/hetiseenkat.mp3", cues[4].Path)

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	require.NoError(t, err)
	var presets []PresetInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&presets))
	require.Len(t, presets, len(camera.Presets()))
	assert.Equal(t, "1080p", presets[0].Name)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/ws/status", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestSurfaceSinkIsShared(t *testing.T) {
	s := newTestServer(t)
	assert.Same(t, s.VideoSink(), s.VideoSink())
	assert.False(t, s.VideoSink().Attached())
}
