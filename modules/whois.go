package modules

import (
	"context"
	"strings"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// WhoisFunc returns the raw WHOIS text for a domain.
type WhoisFunc func(ctx context.Context, domain string) (string, error)

// DefaultWhois queries the registry WHOIS servers.
func DefaultWhois(ctx context.Context, domain string) (string, error) {
	type answer struct {
		raw string
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		raw, err := whois.Whois(domain)
		ch <- answer{raw, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		return a.raw, a.err
	}
}

// WhoisSummary is the whois finding payload.
type WhoisSummary struct {
	Registrar      string   `json:"registrar"`
	CreationDate   string   `json:"creation_date"`
	ExpirationDate string   `json:"expiration_date"`
	NameServers    []string `json:"name_servers,omitempty"`
	Emails         []string `json:"emails"`
}

// SummarizeWhois parses raw WHOIS text. Emails are scraped from the raw text so
// that contacts the parser does not recognize are kept.
func SummarizeWhois(raw string) WhoisSummary {
	summary := WhoisSummary{Emails: ExtractEmails(raw)}
	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		return summary
	}
	if parsed.Registrar != nil {
		summary.Registrar = parsed.Registrar.Name
	}
	if parsed.Domain != nil {
		summary.CreationDate = parsed.Domain.CreatedDate
		summary.ExpirationDate = parsed.Domain.ExpirationDate
		for _, ns := range parsed.Domain.NameServers {
			summary.NameServers = append(summary.NameServers, strings.ToLower(ns))
		}
	}
	return summary
}
