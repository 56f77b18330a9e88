package modules

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/corrosiverage/corrosive/core"
)

// DomainRecon gathers registration, certificate, DNS and exposure data for a domain.
type DomainRecon struct {
	Whois         WhoisFunc
	CRTshURL      string
	Resolver      string
	LookupIP      func(ctx context.Context, host string) ([]net.IP, error)
	NewShodan     func(key string) (HostLookup, error)
	NewVirusTotal func(key string) (ReputationLookup, error)
}

// NewDomainRecon returns the module wired to the public services.
func NewDomainRecon() *DomainRecon {
	return &DomainRecon{
		Whois:    DefaultWhois,
		CRTshURL: CRTshURL,
		Resolver: DefaultResolver,
		LookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip4", host)
		},
		NewShodan:     NewShodanLookup,
		NewVirusTotal: NewVirusTotalLookup,
	}
}

func (m *DomainRecon) Name() string { return "domain_recon" }

func (m *DomainRecon) Description() string {
	return "WHOIS, crt.sh subdomains, DNS records, Shodan and VirusTotal for a domain"
}

func (m *DomainRecon) Services() []string { return []string{"shodan", "virustotal"} }

func (m *DomainRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	domain := NormalizeDomain(rc.Target)
	rc.Log.Infof("Starting domain reconnaissance for %s", domain)

	// 1. WHOIS
	rc.Step("whois", func() error {
		raw, err := m.Whois(ctx, domain)
		if err != nil {
			return fmt.Errorf("whois %s: %w", domain, err)
		}
		rc.AddFinding("whois", SummarizeWhois(raw))
		return nil
	})

	// 2. Subdomains from certificate transparency logs
	rc.Step("crtsh", func() error {
		names, err := FetchCRTshEntries(ctx, rc.HTTP, m.CRTshURL, domain)
		if err != nil {
			return err
		}
		subs := FilterSubdomains(names, domain)
		if len(subs) == 0 {
			rc.Log.Infof("No subdomains found for %s", domain)
			return nil
		}
		rc.AddFinding("subdomain_enumeration", map[string]any{
			"subdomains": subs,
			"count":      len(subs),
		})
		return nil
	})

	// 3. DNS records
	var addrs []string
	rc.Step("dns", func() error {
		server := rc.Config.Get("dns", "resolver")
		if server == "" {
			server = m.Resolver
		}
		records, err := LookupRecords(ctx, server, domain)
		if err != nil {
			return err
		}
		addrs = records["A"]
		if len(records) > 0 {
			rc.AddFinding("dns_records", records)
		}
		return nil
	})

	// 4. Shodan on the first resolved address
	shodanStep(ctx, rc, m.NewShodan, func() (string, error) {
		if len(addrs) > 0 {
			return addrs[0], nil
		}
		ips, err := m.LookupIP(ctx, domain)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", domain, err)
		}
		if len(ips) == 0 {
			return "", fmt.Errorf("resolve %s: no addresses", domain)
		}
		return ips[0].String(), nil
	})

	// 5. VirusTotal
	virusTotalStep(ctx, rc, m.NewVirusTotal, "domain", domain)

	return rc.Result(), nil
}

// NormalizeDomain strips a scheme, path, port and trailing dot from target.
func NormalizeDomain(target string) string {
	t := strings.TrimSpace(strings.ToLower(target))
	if strings.Contains(t, "://") {
		if u, err := url.Parse(t); err == nil && u.Host != "" {
			t = u.Host
		}
	}
	if i := strings.IndexAny(t, "/?#"); i >= 0 {
		t = t[:i]
	}
	if host, _, err := net.SplitHostPort(t); err == nil {
		t = host
	}
	return strings.TrimSuffix(t, ".")
}
