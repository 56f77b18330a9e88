package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/corrosiverage/corrosive/core"
	"github.com/corrosiverage/corrosive/output"
)

//go:embed index.html
var indexHTML []byte

// DefaultAddr keeps the dashboard on loopback.
const DefaultAddr = "127.0.0.1:8088"

type Options struct {
	Engine     *core.Engine
	Runner     ModuleRunner
	ResultsDir string
	ReportDir  string
	// LLM is optional; without it exports have no executive summary.
	LLM core.LLMClient
	Log logrus.FieldLogger
}

// Server is the web replacement for the desktop shell.
type Server struct {
	engine     *core.Engine
	runner     ModuleRunner
	resultsDir string
	reportDir  string
	llm        core.LLMClient
	log        logrus.FieldLogger
	hub        *Hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	status Status
}

func NewServer(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = core.DiscardLogger()
	}
	if opts.ResultsDir == "" {
		opts.ResultsDir = output.DefaultResultsDir
	}
	if opts.ReportDir == "" {
		opts.ReportDir = output.DefaultReportDir
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		engine:     opts.Engine,
		runner:     opts.Runner,
		resultsDir: opts.ResultsDir,
		reportDir:  opts.ReportDir,
		llm:        opts.LLM,
		log:        opts.Log,
		hub:        NewHub(opts.Log),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Router wires every route of the dashboard.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.ServeWS)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/modules", s.handleModules).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/investigations", s.handleStartInvestigation).Methods(http.MethodPost)
	api.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	api.HandleFunc("/results/latest", s.handleLatestResult).Methods(http.MethodGet)
	api.HandleFunc("/results/{name}", s.handleResult).Methods(http.MethodGet)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodPost)
	return r
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Dashboard listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops a running investigation and waits for its worker.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

type moduleInfo struct {
	Name        string   `json:"name"`
	Alias       string   `json:"alias"`
	Description string   `json:"description"`
	Services    []string `json:"services,omitempty"`
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	var out []moduleInfo
	for _, m := range s.engine.Modules() {
		info := moduleInfo{Name: m.Name(), Alias: core.Alias(m.Name()), Description: m.Description()}
		if km, ok := m.(core.KeyedModule); ok {
			info.Services = km.Services()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

type investigationRequest struct {
	Target  string   `json:"target"`
	Modules []string `json:"modules"`
}

func (s *Server) handleStartInvestigation(w http.ResponseWriter, r *http.Request) {
	var req investigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	modules := make([]string, 0, len(req.Modules))
	for _, name := range req.Modules {
		m, err := s.engine.Resolve(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		modules = append(modules, m.Name())
	}

	err := s.Start(req.Target, modules)
	switch {
	case errors.Is(err, ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, s.Status())
	}
}

type resultEntry struct {
	File     string    `json:"file"`
	Modified time.Time `json:"modified"`
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	paths, err := output.ListResults(s.resultsDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries := []resultEntry{}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		entries = append(entries, resultEntry{File: filepath.Base(p), Modified: info.ModTime()})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) serveResultFile(w http.ResponseWriter, path string) {
	report, err := output.ReadResult(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "result file not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": filepath.Base(path), "report": report})
}

func (s *Server) handleLatestResult(w http.ResponseWriter, r *http.Request) {
	path, err := output.LatestResult(s.resultsDir)
	if errors.Is(err, output.ErrNoResults) {
		writeError(w, http.StatusNotFound, "no result files found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.serveResultFile(w, path)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(mux.Vars(r)["name"])
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		writeError(w, http.StatusBadRequest, "not a result file")
		return
	}
	s.serveResultFile(w, filepath.Join(s.resultsDir, name))
}

type reportRequest struct {
	Format    string `json:"format"`
	Summarize bool   `json:"summarize"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	files, err := s.sessionFiles()
	if errors.Is(err, output.ErrNoResults) {
		writeError(w, http.StatusNotFound, "no result files to export; run a module first")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc := output.LoadDocument(s.Status().Target, files, time.Now())
	resp := map[string]any{"files": len(files)}
	if req.Summarize {
		summary, err := output.ExecutiveSummary(r.Context(), s.llm, doc)
		if err != nil {
			s.log.WithError(err).Warn("executive summary skipped")
			resp["summary_error"] = err.Error()
		}
		doc.Summary = summary
	}

	path, err := output.Export(doc, output.ExportOptions{Dir: s.reportDir, Format: req.Format})
	if errors.Is(err, output.ErrUnknownFormat) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp["path"] = path
	writeJSON(w, http.StatusCreated, resp)
}
