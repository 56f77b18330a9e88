package modules

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/corrosiverage/corrosive/core"
)

// CRTshURL is the certificate transparency search; %s receives the url-escaped "%.<domain>" query.
const CRTshURL = "https://crt.sh/?q=%s&output=json"

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// FetchCRTshEntries queries crt.sh and returns every name it lists for the
// domain's certificates, in response order and without filtering (shared).
func FetchCRTshEntries(ctx context.Context, req *core.Requester, endpoint, domain string) ([]string, error) {
	if endpoint == "" {
		endpoint = CRTshURL
	}
	resp, err := req.Fetch(ctx, fmt.Sprintf(endpoint, url.QueryEscape("%."+domain)), core.WithTimeout(30*time.Second))
	if err != nil {
		return nil, err
	}
	var entries []struct {
		NameValue string `json:"name_value"`
	}
	if err := resp.JSON(&entries); err != nil {
		return nil, fmt.Errorf("decode crt.sh response: %w", err)
	}
	var names []string
	for _, entry := range entries {
		for _, name := range strings.Split(entry.NameValue, "\n") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// FilterSubdomains sorts and deduplicates names, dropping the apex itself and wildcard entries.
func FilterSubdomains(names []string, domain string) []string {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	seen := make(map[string]bool)
	out := []string{}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || n == domain || strings.HasPrefix(n, "*.") || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ExtractEmails returns the unique addresses found in text, in first-seen order.
func ExtractEmails(text string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range emailPattern.FindAllString(text, -1) {
		key := strings.ToLower(m)
		if !seen[key] {
			seen[key] = true
			out = append(out, m)
		}
	}
	return out
}
