package modules

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/corrosiverage/corrosive/core"
)

// ErrBackendUnavailable marks a search backend that cannot run, usually for lack of credentials.
var ErrBackendUnavailable = errors.New("search backend unavailable")

// SearchResult is one hit returned by a backend.
type SearchResult struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// SearchBackend runs a web search query.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, rc *core.Context, query string) ([]SearchResult, error)
}

// UnavailableError explains why a backend was skipped.
type UnavailableError struct {
	Engine     string
	MissingKey string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s search is not configured (missing %s)", e.Engine, e.MissingKey)
}

func (e *UnavailableError) Unwrap() error { return ErrBackendUnavailable }

// GoogleCSE queries the Google Custom Search JSON API.
type GoogleCSE struct {
	Endpoint string
	Max      int
}

const GoogleCSEURL = "https://www.googleapis.com/customsearch/v1"

func NewGoogleCSE() *GoogleCSE { return &GoogleCSE{Endpoint: GoogleCSEURL, Max: 10} }

func (g *GoogleCSE) Name() string { return "google" }

type googleResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GoogleCSE) Search(ctx context.Context, rc *core.Context, query string) ([]SearchResult, error) {
	key := rc.APIKey("google")
	if key == "" {
		return nil, &UnavailableError{Engine: g.Name(), MissingKey: core.KeyName("google")}
	}
	cx := rc.Config.Get("search", "google_cx")
	if cx == "" {
		return nil, &UnavailableError{Engine: g.Name(), MissingKey: "google_cx"}
	}

	params := url.Values{}
	params.Set("key", key)
	params.Set("cx", cx)
	params.Set("q", query)
	params.Set("num", fmt.Sprint(g.Max))

	resp, err := rc.HTTP.Fetch(ctx, g.Endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	var body googleResponse
	if err := resp.JSON(&body); err != nil {
		return nil, fmt.Errorf("decode google response: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("google api error %d: %s", body.Error.Code, body.Error.Message)
	}
	results := make([]SearchResult, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, SearchResult{Title: item.Title, URL: item.Link})
	}
	return results, nil
}

// DuckDuckGo scrapes the keyless HTML endpoint.
type DuckDuckGo struct {
	Endpoint string
	Max      int
}

const DuckDuckGoURL = "https://html.duckduckgo.com/html/"

func NewDuckDuckGo() *DuckDuckGo { return &DuckDuckGo{Endpoint: DuckDuckGoURL, Max: 10} }

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Page fetches and parses the result page for query.
func (d *DuckDuckGo) Page(ctx context.Context, rc *core.Context, query string) (*goquery.Document, error) {
	resp, err := rc.HTTP.Fetch(ctx, d.Endpoint+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo page: %w", err)
	}
	return doc, nil
}

func (d *DuckDuckGo) Search(ctx context.Context, rc *core.Context, query string) ([]SearchResult, error) {
	doc, err := d.Page(ctx, rc, query)
	if err != nil {
		return nil, err
	}
	return ParseDuckDuckGo(doc, d.Max), nil
}

// ParseDuckDuckGo extracts up to max result links, unwrapping the redirect URLs.
func ParseDuckDuckGo(doc *goquery.Document, max int) []SearchResult {
	results := []SearchResult{}
	doc.Find("a.result__a").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if link := unwrapDuckDuckGo(href); link != "" {
			results = append(results, SearchResult{Title: strings.TrimSpace(s.Text()), URL: link})
		}
		return max <= 0 || len(results) < max
	})
	return results
}

func unwrapDuckDuckGo(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.String()
	}
	return ""
}
