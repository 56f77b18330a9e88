package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/corrosiverage/corrosive/core"
	"github.com/shadowscatcher/shodan"
	"github.com/shadowscatcher/shodan/search"
)

// ShodanHost is the subset of a Shodan host record the modules report.
type ShodanHost struct {
	IP        string          `json:"ip_str"`
	Country   string          `json:"country_name"`
	City      string          `json:"city"`
	Org       string          `json:"org"`
	OS        string          `json:"os"`
	Ports     []int           `json:"ports"`
	Hostnames []string        `json:"hostnames"`
	RawVulns  json.RawMessage `json:"vulns"`
	Services  []struct {
		Port int `json:"port"`
	} `json:"data"`
}

// Vulns returns the CVE identifiers whether Shodan sent a list or a map keyed by CVE.
func (h *ShodanHost) Vulns() []string {
	if len(h.RawVulns) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(h.RawVulns, &list); err == nil {
		return list
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(h.RawVulns, &byID); err == nil {
		for id := range byID {
			list = append(list, id)
		}
	}
	return list
}

// OpenPorts returns Ports, falling back to the ports of the service banners.
func (h *ShodanHost) OpenPorts() []int {
	if len(h.Ports) > 0 {
		return h.Ports
	}
	ports := []int{}
	seen := map[int]bool{}
	for _, s := range h.Services {
		if !seen[s.Port] {
			seen[s.Port] = true
			ports = append(ports, s.Port)
		}
	}
	return ports
}

// Finding renders the host as the shodan_host_info payload.
func (h *ShodanHost) Finding() map[string]any {
	vulns := h.Vulns()
	if len(vulns) > 5 {
		vulns = vulns[:5]
	}
	if vulns == nil {
		vulns = []string{}
	}
	return map[string]any{
		"ip_str":    h.IP,
		"country":   h.Country,
		"city":      h.City,
		"org":       h.Org,
		"os":        h.OS,
		"ports":     h.OpenPorts(),
		"hostnames": h.Hostnames,
		"vulns":     vulns,
	}
}

// HostLookup fetches host metadata for an IP address.
type HostLookup interface {
	Host(ctx context.Context, ip string) (*ShodanHost, error)
}

type shodanLookup struct {
	client *shodan.Client
}

// NewShodanLookup builds the Shodan client for key.
func NewShodanLookup(key string) (HostLookup, error) {
	client, err := shodan.GetClient(key, &http.Client{Timeout: 20 * time.Second}, false)
	if err != nil {
		return nil, fmt.Errorf("shodan client: %w", err)
	}
	return &shodanLookup{client: client}, nil
}

func (s *shodanLookup) Host(ctx context.Context, ip string) (*ShodanHost, error) {
	host, err := s.client.Host(ctx, search.HostParams{IP: ip, Minify: false, History: false})
	if err != nil {
		return nil, err
	}
	// flatten the library model into the fields we report
	data, err := json.Marshal(host)
	if err != nil {
		return nil, err
	}
	var out ShodanHost
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out.IP == "" {
		out.IP = ip
	}
	return &out, nil
}

// shodanStep reports Shodan host metadata for ip, or an error finding naming
// the missing key.
func shodanStep(ctx context.Context, rc *core.Context, factory func(string) (HostLookup, error), ip func() (string, error)) {
	key, ok := rc.RequireKey("shodan", "Shodan")
	if !ok {
		return
	}
	if factory == nil {
		factory = NewShodanLookup
	}
	rc.ReportStep("shodan", func() error {
		addr, err := ip()
		if err != nil {
			return err
		}
		lookup, err := factory(key)
		if err != nil {
			return err
		}
		host, err := lookup.Host(ctx, addr)
		if err != nil {
			return fmt.Errorf("shodan host %s: %w", addr, err)
		}
		rc.AddFinding("shodan_host_info", host.Finding())
		return nil
	})
}
