package modules

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWhois = `Domain Name: EXAMPLE.COM
Registry Domain ID: 2336799_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.iana.org
Registrar: RESERVED-Internet Assigned Numbers Authority
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2025-08-13T04:00:00Z
Name Server: A.IANA-SERVERS.NET
Registrant Email: hostmaster@example.com
Admin Email: admin@iana.org
`

func crtshServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "%.example.com", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode([]map[string]string{
			{"name_value": "www.example.com\nexample.com"},
			{"name_value": "*.example.com\napi.example.com"},
			{"name_value": "www.example.com"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestDomainRecon(t *testing.T) *DomainRecon {
	m := NewDomainRecon()
	m.Whois = func(context.Context, string) (string, error) { return sampleWhois, nil }
	m.CRTshURL = crtshServer(t).URL + "/?q=%s&output=json"
	m.Resolver = startDNS(t)
	m.LookupIP = func(context.Context, string) ([]net.IP, error) { return nil, errUnreachable }
	return m
}

func TestDomainReconWithoutKeys(t *testing.T) {
	m := newTestDomainRecon(t)
	rc := newRC("Example.com", nil)

	res, err := m.Run(context.Background(), rc)
	require.NoError(t, err)

	whois := findingsOfType(res, "whois")
	require.Len(t, whois, 1)
	summary := whois[0].Data.(WhoisSummary)
	assert.ElementsMatch(t, []string{"hostmaster@example.com", "admin@iana.org"}, summary.Emails)

	subs := findingsOfType(res, "subdomain_enumeration")
	require.Len(t, subs, 1)
	data := subs[0].Data.(map[string]any)
	assert.Equal(t, []string{"api.example.com", "www.example.com"}, data["subdomains"])
	assert.Equal(t, 2, data["count"])

	records := findingsOfType(res, "dns_records")
	require.Len(t, records, 1)
	assert.Equal(t, []string{"93.184.216.34"}, records[0].Data.(map[string][]string)["A"])

	assert.ElementsMatch(t, []string{"shodan_api_key", "virustotal_api_key"}, missingKeys(res))
}

func TestDomainReconShodanUsesResolvedAddress(t *testing.T) {
	m := newTestDomainRecon(t)
	hosts := &fakeHosts{host: &ShodanHost{Org: "Edgecast", Ports: []int{80, 443}, RawVulns: json.RawMessage(`["CVE-1","CVE-2"]`)}}
	m.NewShodan = hosts.factory
	rep := &fakeReputation{rep: &Reputation{Stats: map[string]int{"malicious": 1, "harmless": 70}}}
	m.NewVirusTotal = rep.factory

	rc := newRC("example.com", keyedConfig("shodan", "s", "virustotal", "v"))
	res, err := m.Run(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, []string{"93.184.216.34"}, hosts.seen)
	info := findingsOfType(res, "shodan_host_info")
	require.Len(t, info, 1)
	assert.Equal(t, "Edgecast", info[0].Data.(map[string]any)["org"])
	assert.Equal(t, []string{"CVE-1", "CVE-2"}, info[0].Data.(map[string]any)["vulns"])
	assert.Equal(t, []int{80, 443}, info[0].Data.(map[string]any)["ports"])

	vt := findingsOfType(res, "virustotal_report")
	require.Len(t, vt, 1)
	assert.Equal(t, 1, vt[0].Data.(map[string]any)["malicious"])
	assert.Empty(t, missingKeys(res))
}

func TestDomainReconStepFailuresDoNotAbort(t *testing.T) {
	m := newTestDomainRecon(t)
	m.Whois = func(context.Context, string) (string, error) { return "", errUnreachable }
	m.CRTshURL = "http://127.0.0.1:1/?q=%s"
	hosts := &fakeHosts{err: errUnreachable}
	m.NewShodan = hosts.factory

	rc := newRC("example.com", keyedConfig("shodan", "s"))
	res, err := m.Run(context.Background(), rc)
	require.NoError(t, err)

	assert.Empty(t, findingsOfType(res, "whois"))
	assert.Empty(t, findingsOfType(res, "subdomain_enumeration"))
	assert.Len(t, findingsOfType(res, "dns_records"), 1)
	errs := findingsOfType(res, "error")
	require.Len(t, errs, 2)
	assert.Equal(t, "shodan", errs[0].Data.(map[string]any)["step"])
}

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"Example.COM":                 "example.com",
		"https://www.example.com/a?b": "www.example.com",
		"example.com:8443":            "example.com",
		"example.com.":                "example.com",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDomain(in), in)
	}
}
