package modules

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ibnaleem/gobreach"

	"github.com/corrosiverage/corrosive/core"
)

// HIBPBreachURL is the Have I Been Pwned v3 account endpoint; %s receives the escaped address.
const HIBPBreachURL = "https://haveibeenpwned.com/api/v3/breachedaccount/%s?truncateResponse=false"

// BreachEntry is one BreachDirectory hit with the plaintext password masked.
type BreachEntry struct {
	Sources  string `json:"sources"`
	SHA1     string `json:"sha1,omitempty"`
	Password string `json:"password_masked,omitempty"`
}

// BreachDirectoryFunc searches BreachDirectory for an address.
type BreachDirectoryFunc func(ctx context.Context, key, query string) (found int, entries []BreachEntry, err error)

// SearchBreachDirectory queries BreachDirectory through gobreach.
func SearchBreachDirectory(ctx context.Context, key, query string) (int, []BreachEntry, error) {
	client, err := gobreach.NewBreachDirectoryClient(key)
	if err != nil {
		return 0, nil, err
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	response, err := client.Search(query)
	if err != nil {
		return 0, nil, err
	}
	entries := make([]BreachEntry, 0, len(response.Result))
	for _, e := range response.Result {
		entries = append(entries, BreachEntry{
			Sources:  e.Sources,
			SHA1:     e.Sha1,
			Password: maskSecret(e.Password),
		})
	}
	return response.Found, entries, nil
}

func maskSecret(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-2)
}

// BreachRecon checks an address against Have I Been Pwned and, when a key is
// configured, BreachDirectory.
type BreachRecon struct {
	HIBPURL         string
	BreachDirectory BreachDirectoryFunc
}

func NewBreachRecon() *BreachRecon {
	return &BreachRecon{
		HIBPURL:         HIBPBreachURL,
		BreachDirectory: SearchBreachDirectory,
	}
}

func (m *BreachRecon) Name() string { return "breach_recon" }

func (m *BreachRecon) Description() string {
	return "Looks up an email address in known data breaches"
}

func (m *BreachRecon) Services() []string { return []string{"haveibeenpwned", "breachdirectory"} }

func (m *BreachRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	email := strings.TrimSpace(rc.Target)
	rc.Log.Infof("Starting breach search for %s", email)

	key, ok := rc.RequireKey("haveibeenpwned", "HaveIBeenPwned")
	if !ok {
		return rc.Result(), nil
	}

	resp, err := rc.HTTP.Fetch(ctx, fmt.Sprintf(m.HIBPURL, url.PathEscape(email)),
		core.WithHeader("hibp-api-key", key),
		core.WithHeader("User-Agent", "Corrosive-Rage-OSINT-Framework"),
		core.WithAcceptStatus(http.StatusNotFound))
	switch {
	case err != nil:
		rc.AddError(map[string]any{"message": "Failed to query HaveIBeenPwned API: " + hibpErrorMessage(err)})
	case resp.StatusCode == http.StatusNotFound:
		m.noBreaches(rc, email)
	default:
		var breaches []map[string]any
		if err := resp.JSON(&breaches); err != nil {
			rc.AddError(map[string]any{"message": "Failed to query HaveIBeenPwned API: " + err.Error()})
			break
		}
		if len(breaches) == 0 {
			m.noBreaches(rc, email)
			break
		}
		rc.Log.Infof("Found %d breaches for %s", len(breaches), email)
		rc.AddFinding("breaches_found", map[string]any{
			"email":        email,
			"breach_count": len(breaches),
			"details":      breaches,
		})
	}

	if bdKey := rc.APIKey("breachdirectory"); bdKey != "" && m.BreachDirectory != nil {
		rc.ReportStep("breachdirectory", func() error {
			found, entries, err := m.BreachDirectory(ctx, bdKey, email)
			if err != nil {
				return fmt.Errorf("breachdirectory: %w", err)
			}
			rc.AddFinding("breachdirectory_results", map[string]any{
				"email":   email,
				"found":   found,
				"entries": entries,
			})
			return nil
		})
	}

	return rc.Result(), nil
}

func (m *BreachRecon) noBreaches(rc *core.Context, email string) {
	rc.Log.Infof("No breaches found for %s", email)
	rc.AddFinding("no_breaches_found", map[string]any{
		"email":   email,
		"message": "Email not found in any known breaches.",
	})
}

func hibpErrorMessage(err error) string {
	var statusErr *core.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized:
			return "invalid API key (401)"
		case http.StatusTooManyRequests:
			return "rate limit exceeded (429)"
		}
	}
	return err.Error()
}
