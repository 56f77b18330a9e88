package modules

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyDomain(t *testing.T) {
	assert.Equal(t, "www.acmecorp.com", CompanyDomain(" Acme Corp "))
}

func TestMatchTechnologies(t *testing.T) {
	assert.Equal(t, []string{"docker", "python", "terraform"}, MatchTechnologies("We ship PYTHON services in Docker, provisioned by Terraform"))
	assert.Empty(t, MatchTechnologies("nothing relevant"))
}

func TestCompanyReconUsesRealSearchResults(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ddgPage))
	}))
	defer search.Close()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx")
		w.Write([]byte("<html></html>"))
	}))
	defer site.Close()

	m := NewCompanyRecon()
	m.Search.Endpoint = search.URL
	m.SiteURL = site.URL + "/?host=%s"
	var sawServer string
	m.Fingerprint = func(headers map[string][]string, body []byte) ([]string, error) {
		sawServer = strings.Join(headers["Server"], ",")
		return []string{"Nginx"}, nil
	}

	res, err := m.Run(context.Background(), newRC("Acme", nil))
	require.NoError(t, err)

	stacks := findingsOfType(res, "tech_stack")
	require.Len(t, stacks, 2)
	assert.Equal(t, "job_postings", stacks[0].Data.(map[string]any)["source"])
	assert.Equal(t, []string{"kubernetes", "python", "terraform"}, stacks[0].Data.(map[string]any)["technologies"])
	assert.Equal(t, "website_fingerprint", stacks[1].Data.(map[string]any)["source"])
	assert.Equal(t, "nginx", sawServer)

	employees := findingsOfType(res, "key_employees")
	require.Len(t, employees, 1)
	profiles := employees[0].Data.(map[string]any)["profiles"].([]employeeProfile)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Jane Doe", profiles[0].Name)
	assert.Equal(t, "CTO - Acme", profiles[0].Title)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", profiles[0].LinkedIn)
}

func TestCompanyReconNothingReachable(t *testing.T) {
	m := NewCompanyRecon()
	m.Search.Endpoint = "http://127.0.0.1:1/html/"
	m.SiteURL = "http://127.0.0.1:1/%s"

	res, err := m.Run(context.Background(), newRC("Acme", nil))
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
}
