package modules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/corrosiverage/corrosive/core"
)

// TechKeywords is the vocabulary matched against job-posting search text.
var TechKeywords = []string{"python", "java", "aws", "react", "kubernetes", "docker", "sql", "gcp", "azure", "terraform"}

// CompanyRecon infers a company's technology stack and finds public profiles
// of its leadership. Every reported person comes from a real search result.
type CompanyRecon struct {
	Search      *DuckDuckGo
	SiteURL     string
	Fingerprint FingerprintFunc
}

func NewCompanyRecon() *CompanyRecon {
	return &CompanyRecon{
		Search:      NewDuckDuckGo(),
		SiteURL:     "https://%s",
		Fingerprint: Wappalyze,
	}
}

func (m *CompanyRecon) Name() string { return "company_recon" }

func (m *CompanyRecon) Description() string {
	return "Technology stack from job postings and website fingerprint, plus leadership profiles"
}

// CompanyDomain guesses the corporate website: www.<name without spaces>.com.
func CompanyDomain(company string) string {
	return "www." + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(company)), " ", "") + ".com"
}

// MatchTechnologies returns the sorted keywords that occur in text.
func MatchTechnologies(text string) []string {
	text = strings.ToLower(text)
	found := []string{}
	for _, kw := range TechKeywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	sort.Strings(found)
	return found
}

type employeeProfile struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	LinkedIn string `json:"linkedin"`
}

func (m *CompanyRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	company := strings.TrimSpace(rc.Target)
	domain := CompanyDomain(company)
	rc.Log.Infof("Starting company intelligence for %s (%s)", company, domain)

	rc.Step("job_postings", func() error {
		doc, err := m.Search.Page(ctx, rc, fmt.Sprintf(`site:linkedin.com/jobs "%s" software engineer`, company))
		if err != nil {
			return err
		}
		techs := MatchTechnologies(doc.Find(".result__title, .result__snippet").Text())
		if len(techs) == 0 {
			rc.Log.Info("No technologies inferred from job postings")
			return nil
		}
		rc.AddFinding("tech_stack", map[string]any{
			"source":       "job_postings",
			"technologies": techs,
		})
		return nil
	})

	rc.Step("website_fingerprint", func() error {
		resp, err := rc.HTTP.Fetch(ctx, fmt.Sprintf(m.SiteURL, domain))
		if err != nil {
			return err
		}
		techs, err := m.Fingerprint(resp.Header, resp.Body)
		if err != nil {
			return err
		}
		if len(techs) == 0 {
			return nil
		}
		rc.AddFinding("tech_stack", map[string]any{
			"source":       "website_fingerprint",
			"domain":       domain,
			"technologies": techs,
		})
		return nil
	})

	rc.Step("key_employees", func() error {
		query := fmt.Sprintf(`site:linkedin.com/in "%s" (CEO OR CTO OR founder OR "chief technology officer")`, company)
		results, err := m.Search.Search(ctx, rc, query)
		if err != nil {
			return err
		}
		profiles := []employeeProfile{}
		for _, r := range results {
			if !strings.Contains(r.URL, "linkedin.com/in/") {
				continue
			}
			name, title, _ := strings.Cut(r.Title, " - ")
			profiles = append(profiles, employeeProfile{
				Name:     strings.TrimSpace(name),
				Title:    strings.TrimSpace(strings.TrimSuffix(title, " | LinkedIn")),
				LinkedIn: r.URL,
			})
		}
		if len(profiles) == 0 {
			rc.Log.Info("No leadership profiles found")
			return nil
		}
		rc.AddFinding("key_employees", map[string]any{
			"source":   "linkedin_search",
			"profiles": profiles,
		})
		return nil
	})

	return rc.Result(), nil
}
