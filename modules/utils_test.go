package modules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSubdomains(t *testing.T) {
	got := FilterSubdomains([]string{"b.example.com", "*.example.com", "example.com", "A.example.com", "b.example.com", ""}, "example.com")
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, got)
	assert.NotNil(t, FilterSubdomains(nil, "example.com"))
}

func TestExtractEmails(t *testing.T) {
	got := ExtractEmails("Admin: a.b@example.com\nTech: A.B@example.com, noc@net.example.org; bad@x")
	assert.Equal(t, []string{"a.b@example.com", "noc@net.example.org"}, got)
}

func TestShodanHostVulnShapes(t *testing.T) {
	list := ShodanHost{RawVulns: json.RawMessage(`["CVE-1","CVE-2","CVE-3","CVE-4","CVE-5","CVE-6"]`)}
	assert.Len(t, list.Finding()["vulns"], 5)

	byID := ShodanHost{RawVulns: json.RawMessage(`{"CVE-9":{"cvss":7.5}}`)}
	assert.Equal(t, []string{"CVE-9"}, byID.Vulns())

	svc := ShodanHost{}
	svc.Services = append(svc.Services, struct {
		Port int `json:"port"`
	}{Port: 22})
	assert.Equal(t, []int{22}, svc.OpenPorts())
}
