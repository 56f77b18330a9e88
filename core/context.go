package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Context carries everything one module run needs: the target, the loaded
// configuration, an injected logger and HTTP requester, and the findings
// accumulated so far. A Context is never reused across targets.
type Context struct {
	Target string
	Config *Config
	Log    logrus.FieldLogger
	HTTP   *Requester

	result *Result
}

// NewContext builds a run context. Nil collaborators are replaced with usable
// defaults, so construction always succeeds.
func NewContext(target, module string, cfg *Config, log logrus.FieldLogger, req *Requester) *Context {
	if cfg == nil {
		cfg = EmptyConfig()
	}
	if log == nil {
		log = NewLogger(false, nil)
	}
	if req == nil {
		req = NewRequester(log)
	}
	return &Context{
		Target: target,
		Config: cfg,
		Log:    log.WithFields(logrus.Fields{"module": module, "target": target}),
		HTTP:   req,
		result: &Result{
			Target:   target,
			Module:   module,
			Findings: []Finding{},
		},
	}
}

// AddFinding appends a finding. Findings are never reordered or deduplicated.
func (c *Context) AddFinding(kind string, data any) {
	c.result.Findings = append(c.result.Findings, Finding{Type: kind, Data: data})
	c.Log.Infof("Finding added: %s", kind)
}

// AddError appends an error-typed finding.
func (c *Context) AddError(data map[string]any) {
	c.AddFinding(FindingError, data)
}

// Result returns the envelope being accumulated.
func (c *Context) Result() *Result {
	return c.result
}

// APIKey returns the configured key for service, or "" when it is absent or
// still a placeholder.
func (c *Context) APIKey(service string) string {
	return c.Config.APIKey(service)
}

// RequireKey is APIKey plus an error finding naming the missing key.
func (c *Context) RequireKey(service, label string) (string, bool) {
	key := c.APIKey(service)
	if key != "" {
		return key, true
	}
	c.Log.Warnf("%s API key not configured", label)
	c.AddError(map[string]any{
		"message":     fmt.Sprintf("%s API key is missing.", label),
		"service":     service,
		"missing_key": KeyName(service),
	})
	return "", false
}

// Step runs an optional sub-step. A failure or panic is logged as a warning
// and the run continues.
func (c *Context) Step(name string, fn func() error) {
	if err := c.attempt(fn); err != nil {
		c.Log.WithField("step", name).Warnf("step failed: %v", err)
	}
}

// ReportStep runs a sub-step whose failure is reported as an error finding.
// It reports whether the step succeeded.
func (c *Context) ReportStep(name string, fn func() error) bool {
	err := c.attempt(fn)
	if err == nil {
		return true
	}
	c.Log.WithField("step", name).Errorf("step failed: %v", err)
	c.AddError(map[string]any{
		"message": err.Error(),
		"step":    name,
	})
	return false
}

func (c *Context) attempt(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Finding types shared across modules.
const (
	FindingError = "error"
)
