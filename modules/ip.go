package modules

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/corrosiverage/corrosive/core"
)

// IPGeoURL is the ip-api.com endpoint; %s receives the address.
const IPGeoURL = "http://ip-api.com/json/%s"

// IPRecon geolocates an address and collects its reverse DNS and exposure data.
type IPRecon struct {
	GeoURL        string
	LookupAddr    func(ctx context.Context, addr string) ([]string, error)
	NewShodan     func(key string) (HostLookup, error)
	NewVirusTotal func(key string) (ReputationLookup, error)
}

func NewIPRecon() *IPRecon {
	return &IPRecon{
		GeoURL:        IPGeoURL,
		LookupAddr:    net.DefaultResolver.LookupAddr,
		NewShodan:     NewShodanLookup,
		NewVirusTotal: NewVirusTotalLookup,
	}
}

func (m *IPRecon) Name() string { return "ip_recon" }

func (m *IPRecon) Description() string {
	return "Geolocation, reverse DNS, Shodan and VirusTotal for an IP address"
}

func (m *IPRecon) Services() []string { return []string{"shodan", "virustotal"} }

type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	ISP        string `json:"isp"`
	Org        string `json:"org"`
	Query      string `json:"query"`
}

func (m *IPRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	addr := strings.TrimSpace(rc.Target)
	rc.Log.Infof("Starting IP investigation for %s", addr)

	if net.ParseIP(addr) == nil {
		rc.AddError(map[string]any{"message": "Target must be a valid IP address."})
		return rc.Result(), nil
	}

	rc.Step("geolocation", func() error {
		resp := rc.HTTP.Do(ctx, fmt.Sprintf(m.GeoURL, addr))
		if resp == nil {
			return errors.New("no response from geolocation service")
		}
		var geo ipAPIResponse
		if err := resp.JSON(&geo); err != nil {
			return fmt.Errorf("decode geolocation: %w", err)
		}
		if geo.Status != "success" {
			rc.Log.Warnf("Geolocation API returned an error: %s", geo.Message)
			return nil
		}
		rc.AddFinding("geolocation", map[string]any{
			"country": geo.Country,
			"region":  geo.RegionName,
			"city":    geo.City,
			"isp":     geo.ISP,
			"org":     geo.Org,
			"query":   geo.Query,
		})
		return nil
	})

	rc.Step("reverse_dns", func() error {
		names, err := m.LookupAddr(ctx, addr)
		if err != nil || len(names) == 0 {
			rc.Log.Infof("No reverse DNS found for %s", addr)
			return nil
		}
		hosts := make([]string, 0, len(names))
		for _, n := range names {
			hosts = append(hosts, strings.TrimSuffix(n, "."))
		}
		rc.AddFinding("reverse_dns", map[string]any{
			"hostname": hosts[0],
			"aliases":  hosts[1:],
		})
		return nil
	})

	shodanStep(ctx, rc, m.NewShodan, func() (string, error) { return addr, nil })
	virusTotalStep(ctx, rc, m.NewVirusTotal, "ip", addr)

	return rc.Result(), nil
}
