package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultResolver is the upstream used for record lookups.
const DefaultResolver = "8.8.8.8:53"

var recordTypes = []struct {
	name  string
	qtype uint16
}{
	{"A", dns.TypeA},
	{"AAAA", dns.TypeAAAA},
	{"MX", dns.TypeMX},
	{"NS", dns.TypeNS},
	{"TXT", dns.TypeTXT},
}

// LookupRecords queries server for the common record types of domain. Types
// with no answers are omitted; an error is returned only when every query fails.
func LookupRecords(ctx context.Context, server, domain string) (map[string][]string, error) {
	if server == "" {
		server = DefaultResolver
	}
	client := &dns.Client{Timeout: 5 * time.Second}
	records := make(map[string][]string)
	var lastErr error
	failures := 0
	for _, rt := range recordTypes {
		answers, err := queryDNS(ctx, client, server, domain, rt.qtype)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		if len(answers) > 0 {
			records[rt.name] = answers
		}
	}
	if failures == len(recordTypes) {
		return nil, fmt.Errorf("dns lookups for %s failed: %w", domain, lastErr)
	}
	return records, nil
}

func queryDNS(ctx context.Context, client *dns.Client, server, domain string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	in, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if in.Rcode != dns.RcodeSuccess && in.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%s query returned %s", dns.TypeToString[qtype], dns.RcodeToString[in.Rcode])
	}

	var out []string
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		case *dns.MX:
			out = append(out, fmt.Sprintf("%s (%d)", strings.TrimSuffix(v.Mx, "."), v.Preference))
		case *dns.NS:
			out = append(out, strings.TrimSuffix(v.Ns, "."))
		case *dns.TXT:
			out = append(out, strings.Join(v.Txt, ""))
		}
	}
	return out, nil
}
