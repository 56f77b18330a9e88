package modules

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corrosiverage/corrosive/core"
)

const (
	GravatarAvatarURL  = "https://www.gravatar.com/avatar/%s?d=404&s=80"
	GravatarProfileURL = "https://www.gravatar.com/%s"
	HIBPAccountURL     = "https://haveibeenpwned.com/Account/%s"
)

// EmailRecon checks Gravatar and prepares manual pivot links. It needs no API key.
type EmailRecon struct {
	AvatarURL string
}

func NewEmailRecon() *EmailRecon {
	return &EmailRecon{AvatarURL: GravatarAvatarURL}
}

func (m *EmailRecon) Name() string { return "email_recon" }

func (m *EmailRecon) Description() string {
	return "Gravatar profile check plus search-engine and breach lookup links"
}

// GravatarHash is md5 of the trimmed, lower-cased address.
func GravatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// SearchLink is one manual pivot URL.
type SearchLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// EmailSearchLinks builds the static search-engine links for an address.
func EmailSearchLinks(email string) []SearchLink {
	q := url.QueryEscape(email)
	return []SearchLink{
		{Name: "Google", URL: fmt.Sprintf(`https://www.google.com/search?q="%s"`, q)},
		{Name: "Bing", URL: fmt.Sprintf(`https://www.bing.com/search?q="%s"`, q)},
		{Name: "DuckDuckGo", URL: fmt.Sprintf(`https://duckduckgo.com/?q="%s"`, q)},
		{Name: "Facebook", URL: fmt.Sprintf("https://www.facebook.com/search/people/?q=%s", q)},
		{Name: "Twitter", URL: fmt.Sprintf(`https://twitter.com/search?q="%s"&f=user`, q)},
	}
}

func (m *EmailRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	email := strings.TrimSpace(rc.Target)
	rc.Log.Infof("Starting email investigation for %s", email)

	hash := GravatarHash(email)
	rc.Step("gravatar", func() error {
		resp := rc.HTTP.Do(ctx, fmt.Sprintf(m.AvatarURL, hash),
			core.WithMethod(http.MethodHead),
			core.WithTimeout(5*time.Second),
			core.WithAcceptStatus(http.StatusNotFound))
		if resp == nil {
			return fmt.Errorf("gravatar check failed")
		}
		if resp.StatusCode == http.StatusOK {
			rc.AddFinding("gravatar_profile", map[string]any{
				"profile_url": fmt.Sprintf(GravatarProfileURL, hash),
			})
		}
		return nil
	})

	rc.AddFinding("search_engine_links", EmailSearchLinks(email))
	rc.AddFinding("have_i_been_pwned_link", map[string]any{
		"search_url": fmt.Sprintf(HIBPAccountURL, url.PathEscape(email)),
	})

	return rc.Result(), nil
}
