package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrosiverage/corrosive/core"
	"github.com/corrosiverage/corrosive/output"
)

type stubModule struct{ name string }

func (m stubModule) Name() string        { return m.name }
func (m stubModule) Description() string { return "stub " + m.name }
func (m stubModule) Run(_ context.Context, rc *core.Context) (*core.Result, error) {
	return rc.Result(), nil
}

func testEngine() *core.Engine {
	e := core.NewEngine()
	for _, n := range []string{"domain_recon", "email_recon", "ip_recon"} {
		e.RegisterModule(stubModule{name: n})
	}
	return e
}

// fakeRunner writes a result file per call instead of spawning a process.
type fakeRunner struct {
	dir      string
	noMarker bool
	fail     map[string]bool
	release  chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeRunner) Run(ctx context.Context, target, module string, line func(string)) error {
	f.mu.Lock()
	f.calls = append(f.calls, module)
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	line(fmt.Sprintf("[*] Starting '%s' investigation for target '%s'...", module, target))
	if f.fail[module] {
		return errors.New("exit status 1")
	}

	now := time.Now()
	res := &core.Result{Target: target, Module: module, Findings: []core.Finding{{Type: "note", Data: map[string]any{"module": module}}}}
	path, err := output.WriteResult(f.dir, output.NewReport(res, now), now)
	if err != nil {
		return err
	}
	if !f.noMarker {
		line(output.FormatResultMarker(path))
	}
	return nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestServer(t *testing.T, runner *fakeRunner) *Server {
	t.Helper()
	s := NewServer(Options{
		Engine:     testEngine(),
		Runner:     runner,
		ResultsDir: runner.dir,
		ReportDir:  t.TempDir(),
	})
	t.Cleanup(s.Close)
	return s
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitIdle(t *testing.T, s *Server) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.Status().Running }, 5*time.Second, 10*time.Millisecond)
}

func TestModulesEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeRunner{dir: t.TempDir()})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/modules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var mods []moduleInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mods))
	require.Len(t, mods, 3)
	assert.Equal(t, "domain_recon", mods[0].Name)
	assert.Equal(t, "domain", mods[0].Alias)
}

func TestStartInvestigationValidation(t *testing.T) {
	s := newTestServer(t, &fakeRunner{dir: t.TempDir()})
	h := s.Router()

	rec := postJSON(t, h, "/api/investigations", map[string]any{"target": " ", "modules": []string{"domain"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/api/investigations", map[string]any{"target": "example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/api/investigations", map[string]any{"target": "example.com", "modules": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not valid")
}

func TestInvestigationRunsModulesSequentially(t *testing.T) {
	runner := &fakeRunner{dir: t.TempDir(), fail: map[string]bool{"ip_recon": true}}
	s := newTestServer(t, runner)

	rec := postJSON(t, s.Router(), "/api/investigations", map[string]any{
		"target":  "example.com",
		"modules": []string{"email", "ip", "domain_recon"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitIdle(t, s)

	assert.Equal(t, []string{"email_recon", "ip_recon", "domain_recon"}, runner.Calls())
	st := s.Status()
	assert.Equal(t, 3, st.Completed)
	assert.Len(t, st.Files, 2)
	assert.NotNil(t, st.FinishedAt)
	assert.Contains(t, strings.Join(st.Log, "\n"), "[!] Error running module ip_recon")
	assert.Contains(t, strings.Join(st.Log, "\n"), "[i] No result file found for this module.")
}

func TestInvestigationFallsBackToFileMatching(t *testing.T) {
	runner := &fakeRunner{dir: t.TempDir(), noMarker: true}
	s := newTestServer(t, runner)

	require.NoError(t, s.Start("User@Example.com", []string{"email_recon"}))
	waitIdle(t, s)

	st := s.Status()
	require.Len(t, st.Files, 1)
	assert.Contains(t, strings.ToLower(filepath.Base(st.Files[0])), "userexample.com_email_recon_")
}

func TestConcurrentInvestigationIsRejected(t *testing.T) {
	runner := &fakeRunner{dir: t.TempDir(), release: make(chan struct{})}
	s := newTestServer(t, runner)
	h := s.Router()

	rec := postJSON(t, h, "/api/investigations", map[string]any{"target": "a.com", "modules": []string{"domain"}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = postJSON(t, h, "/api/investigations", map[string]any{"target": "b.com", "modules": []string{"domain"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.ErrorIs(t, s.Start("b.com", []string{"domain_recon"}), ErrBusy)

	// status stays responsive while the worker is blocked
	statusRec := httptest.NewRecorder()
	h.ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, statusRec.Code)
	assert.Contains(t, statusRec.Body.String(), `"running":true`)

	close(runner.release)
	waitIdle(t, s)
	assert.NoError(t, s.Start("b.com", []string{"domain_recon"}))
	waitIdle(t, s)
}

func TestResultsEndpoints(t *testing.T) {
	runner := &fakeRunner{dir: t.TempDir()}
	s := newTestServer(t, runner)
	h := s.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.Start("example.com", []string{"domain_recon"}))
	waitIdle(t, s)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []resultEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var latest struct {
		File   string         `json:"file"`
		Report *output.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, entries[0].File, latest.File)
	assert.Equal(t, "domain_recon", latest.Report.Module)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/"+entries[0].File, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/missing.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	runner := &fakeRunner{dir: t.TempDir()}
	s := newTestServer(t, runner)
	h := s.Router()

	rec := postJSON(t, h, "/api/report", map[string]any{"format": "md"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.Start("example.com", []string{"domain_recon", "email_recon"}))
	waitIdle(t, s)

	rec = postJSON(t, h, "/api/report", map[string]any{"format": "md", "summarize": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["files"])
	assert.NotEmpty(t, body["summary_error"])

	data, err := os.ReadFile(body["path"].(string))
	require.NoError(t, err)
	assert.Contains(t, string(data), "## domain_recon: example.com")
	assert.Contains(t, string(data), "## email_recon: example.com")

	rec = postJSON(t, h, "/api/report", map[string]any{"format": "odt"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebsocketStreamsEvents(t *testing.T) {
	runner := &fakeRunner{dir: t.TempDir()}
	s := newTestServer(t, runner)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Start("example.com", []string{"domain_recon"}))

	seen := map[string]bool{}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for !seen[EventFinished] {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		seen[ev.Type] = true
		if ev.Type == EventResult {
			assert.Equal(t, "domain_recon", ev.Module)
			assert.NotEmpty(t, ev.File)
		}
	}
	assert.True(t, seen[EventStarted])
	assert.True(t, seen[EventModuleStarted])
	assert.True(t, seen[EventLog])
	assert.True(t, seen[EventResult])
}

func TestIndexIsServed(t *testing.T) {
	s := newTestServer(t, &fakeRunner{dir: t.TempDir()})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Corrosive's Rage")
}
