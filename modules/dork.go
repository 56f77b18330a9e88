package modules

import (
	"context"
	"errors"
	"strings"

	"github.com/corrosiverage/corrosive/core"
)

// DorkRecon runs a search dork against an ordered list of backends, falling
// back to the next one while the previous yields nothing or is unavailable.
type DorkRecon struct {
	Backends []SearchBackend
}

func NewDorkRecon() *DorkRecon {
	return &DorkRecon{Backends: []SearchBackend{NewGoogleCSE(), NewDuckDuckGo()}}
}

func (m *DorkRecon) Name() string { return "dork_recon" }

func (m *DorkRecon) Description() string {
	return "Runs a search-engine dork (Google Custom Search, then DuckDuckGo)"
}

func (m *DorkRecon) Services() []string { return []string{"google"} }

type dorkHit struct {
	Number int    `json:"result_number"`
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
}

func (m *DorkRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	dork := strings.TrimSpace(rc.Target)
	rc.Log.Infof("Starting dork search for %s", dork)

	for _, backend := range m.Backends {
		if ctx.Err() != nil {
			break
		}
		if m.attempt(ctx, rc, backend, dork) {
			break
		}
	}
	return rc.Result(), nil
}

// attempt emits exactly one finding for backend and reports whether it produced results.
func (m *DorkRecon) attempt(ctx context.Context, rc *core.Context, backend SearchBackend, dork string) bool {
	engine := backend.Name()
	results, err := backend.Search(ctx, rc, dork)
	if err != nil {
		data := map[string]any{
			"engine":  engine,
			"dork":    dork,
			"message": "An error occurred during the search: " + err.Error(),
		}
		var unavailable *UnavailableError
		if errors.As(err, &unavailable) {
			data["message"] = unavailable.Error()
			data["missing_key"] = unavailable.MissingKey
		}
		rc.Log.WithField("engine", engine).Warnf("search failed: %v", err)
		rc.AddError(data)
		return false
	}

	if len(results) == 0 {
		rc.Log.WithField("engine", engine).Info("No results found for dork")
		rc.AddFinding("no_results", map[string]any{
			"engine":  engine,
			"dork":    dork,
			"message": "No results found for this dork.",
		})
		return false
	}

	hits := make([]dorkHit, 0, len(results))
	for i, r := range results {
		hits = append(hits, dorkHit{Number: i + 1, URL: r.URL, Title: r.Title})
	}
	rc.Log.WithField("engine", engine).Infof("Found %d results for dork", len(hits))
	rc.AddFinding("dork_results", map[string]any{
		"engine":       engine,
		"dork":         dork,
		"result_count": len(hits),
		"results":      hits,
	})
	return true
}
