package modules

import (
	"context"
	"encoding/json"
	"fmt"

	vt "github.com/VirusTotal/vt-go"

	"github.com/corrosiverage/corrosive/core"
)

// Reputation is the VirusTotal verdict summary for one resource.
type Reputation struct {
	Resource   string         `json:"resource"`
	Kind       string         `json:"kind"`
	Stats      map[string]int `json:"last_analysis_stats"`
	Reputation int            `json:"reputation"`
	Permalink  string         `json:"permalink"`
}

// ReputationLookup fetches a VirusTotal report. kind is "domain" or "ip".
type ReputationLookup interface {
	Lookup(ctx context.Context, kind, resource string) (*Reputation, error)
}

type vtLookup struct {
	client *vt.Client
}

// NewVirusTotalLookup builds the VirusTotal v3 client for key.
func NewVirusTotalLookup(key string) (ReputationLookup, error) {
	return &vtLookup{client: vt.NewClient(key)}, nil
}

func (v *vtLookup) Lookup(ctx context.Context, kind, resource string) (*Reputation, error) {
	var u, gui string
	switch kind {
	case "domain":
		u, gui = "domains/%s", "https://www.virustotal.com/gui/domain/%s"
	case "ip":
		u, gui = "ip_addresses/%s", "https://www.virustotal.com/gui/ip-address/%s"
	default:
		return nil, fmt.Errorf("unsupported virustotal resource kind %q", kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obj, err := v.client.GetObject(vt.URL(u, resource))
	if err != nil {
		return nil, err
	}

	rep := &Reputation{
		Resource:  resource,
		Kind:      kind,
		Stats:     map[string]int{},
		Permalink: fmt.Sprintf(gui, resource),
	}
	if raw, err := obj.Get("last_analysis_stats"); err == nil {
		if stats, ok := raw.(map[string]interface{}); ok {
			for k, val := range stats {
				if n, ok := statCount(val); ok {
					rep.Stats[k] = n
				}
			}
		}
	}
	if score, err := obj.GetInt64("reputation"); err == nil {
		rep.Reputation = int(score)
	}
	return rep, nil
}

// statCount reads one last_analysis_stats counter. vt-go decodes objects
// with UseNumber, so counters arrive as json.Number.
func statCount(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// Finding renders the report as the virustotal_report payload.
func (r *Reputation) Finding() map[string]any {
	return map[string]any{
		"resource":   r.Resource,
		"malicious":  r.Stats["malicious"],
		"suspicious": r.Stats["suspicious"],
		"harmless":   r.Stats["harmless"],
		"undetected": r.Stats["undetected"],
		"reputation": r.Reputation,
		"permalink":  r.Permalink,
	}
}

// virusTotalStep reports the VirusTotal verdict for resource, or an error
// finding naming the missing key.
func virusTotalStep(ctx context.Context, rc *core.Context, factory func(string) (ReputationLookup, error), kind, resource string) {
	key, ok := rc.RequireKey("virustotal", "VirusTotal")
	if !ok {
		return
	}
	if factory == nil {
		factory = NewVirusTotalLookup
	}
	rc.ReportStep("virustotal", func() error {
		lookup, err := factory(key)
		if err != nil {
			return err
		}
		rep, err := lookup.Lookup(ctx, kind, resource)
		if err != nil {
			return fmt.Errorf("virustotal %s %s: %w", kind, resource, err)
		}
		rc.AddFinding("virustotal_report", rep.Finding())
		return nil
	})
}
