package dashboard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/corrosiverage/corrosive/output"
)

var (
	// ErrBusy is returned when an investigation is already running.
	ErrBusy = errors.New("an investigation is already running")
	// ErrInvalidRequest covers an empty target or module selection.
	ErrInvalidRequest = errors.New("invalid investigation request")
)

const logTail = 500

// Status is a snapshot of the current or last investigation.
type Status struct {
	Running    bool       `json:"running"`
	Target     string     `json:"target,omitempty"`
	Modules    []string   `json:"modules,omitempty"`
	Current    string     `json:"current,omitempty"`
	Completed  int        `json:"completed"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Files      []string   `json:"files"`
	Log        []string   `json:"log"`
}

func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Modules = append([]string(nil), s.status.Modules...)
	st.Files = append([]string{}, s.status.Files...)
	st.Log = append([]string{}, s.status.Log...)
	return st
}

// Start launches a background investigation running modules one after the
// other. Module names must already be canonical.
func (s *Server) Start(target string, modules []string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("%w: a target is required", ErrInvalidRequest)
	}
	if len(modules) == 0 {
		return fmt.Errorf("%w: select at least one module", ErrInvalidRequest)
	}

	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return ErrBusy
	}
	now := time.Now()
	s.status = Status{
		Running:   true,
		Target:    target,
		Modules:   append([]string(nil), modules...),
		StartedAt: &now,
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.investigate(s.ctx, target, modules)
	}()
	return nil
}

func (s *Server) investigate(ctx context.Context, target string, modules []string) {
	log := s.log.WithField("target", target)
	log.WithField("modules", modules).Info("investigation started")
	s.emitLog("", fmt.Sprintf("[*] Starting investigation for target: '%s'", target))
	s.emitLog("", fmt.Sprintf("[*] Selected modules: %s", strings.Join(modules, ", ")))
	s.hub.Broadcast(Event{Type: EventStarted, Message: target})

	defer func() {
		now := time.Now()
		s.mu.Lock()
		s.status.Running = false
		s.status.Current = ""
		s.status.FinishedAt = &now
		s.mu.Unlock()
		st := s.Status()
		s.hub.Broadcast(Event{Type: EventFinished, Status: &st})
		log.Info("investigation finished")
	}()

	for i, module := range modules {
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		s.status.Current = module
		s.mu.Unlock()
		s.hub.Broadcast(Event{Type: EventModuleStarted, Module: module})
		s.emitLog(module, fmt.Sprintf("[+] Running module %d/%d: %s", i+1, len(modules), module))

		var marker string
		err := s.runner.Run(ctx, target, module, func(line string) {
			if p, ok := output.ParseResultMarker(line); ok {
				marker = p
			}
			s.emitLog(module, line)
		})
		if err != nil {
			log.WithError(err).WithField("module", module).Warn("module run failed")
			s.hub.Broadcast(Event{Type: EventModuleFailed, Module: module, Message: err.Error()})
			s.emitLog(module, fmt.Sprintf("[!] Error running module %s: %v", module, err))
		}
		if ctx.Err() != nil {
			return
		}

		s.loadResult(target, module, marker)
		s.mu.Lock()
		s.status.Completed++
		s.mu.Unlock()
	}
}

// loadResult prefers the path printed on the marker line and falls back to
// matching file names in the results directory.
func (s *Server) loadResult(target, module, marker string) {
	path := marker
	if path == "" {
		found, err := output.FindResultFile(s.resultsDir, target, module)
		if err != nil {
			s.hub.Broadcast(Event{Type: EventResultMissing, Module: module})
			s.emitLog(module, "[i] No result file found for this module.")
			return
		}
		path = found
	}

	report, err := output.ReadResult(path)
	if err != nil {
		s.emitLog(module, fmt.Sprintf("[!] Error reading %s: %v", filepath.Base(path), err))
		return
	}

	s.mu.Lock()
	s.status.Files = append(s.status.Files, path)
	s.mu.Unlock()
	s.hub.Broadcast(Event{Type: EventResult, Module: module, File: filepath.Base(path), Result: report})
	s.emitLog(module, "[+] Result loaded: "+filepath.Base(path))
}

func (s *Server) emitLog(module, line string) {
	s.mu.Lock()
	s.status.Log = append(s.status.Log, line)
	if n := len(s.status.Log); n > logTail {
		s.status.Log = s.status.Log[n-logTail:]
	}
	s.mu.Unlock()
	s.hub.Broadcast(Event{Type: EventLog, Module: module, Line: line})
}

// sessionFiles picks what an export covers: this session's files, else files
// naming the last target, else the five newest.
func (s *Server) sessionFiles() ([]string, error) {
	st := s.Status()
	if len(st.Files) > 0 {
		return st.Files, nil
	}
	all, err := output.ListResults(s.resultsDir)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, output.ErrNoResults
	}
	if st.Target != "" {
		matched, err := output.ResultsFor(s.resultsDir, st.Target)
		if err != nil {
			return nil, err
		}
		if len(matched) > 0 {
			return matched, nil
		}
	}
	if len(all) > 5 {
		all = all[:5]
	}
	return all, nil
}
