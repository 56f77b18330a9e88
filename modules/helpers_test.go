package modules

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/corrosiverage/corrosive/core"
)

func newRC(target string, cfg *core.Config) *core.Context {
	if cfg == nil {
		cfg = core.EmptyConfig()
	}
	log := core.DiscardLogger()
	return core.NewContext(target, "test", cfg, log, core.NewRequester(log))
}

func keyedConfig(pairs ...string) *core.Config {
	cfg := core.EmptyConfig()
	for i := 0; i+1 < len(pairs); i += 2 {
		cfg.SetAPIKey(pairs[i], pairs[i+1])
	}
	return cfg
}

func findingsOfType(res *core.Result, kind string) []core.Finding {
	var out []core.Finding
	for _, f := range res.Findings {
		if f.Type == kind {
			out = append(out, f)
		}
	}
	return out
}

func missingKeys(res *core.Result) []string {
	var keys []string
	for _, f := range findingsOfType(res, core.FindingError) {
		if data, ok := f.Data.(map[string]any); ok {
			if k, ok := data["missing_key"].(string); ok {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

type fakeHosts struct {
	host *ShodanHost
	err  error
	seen []string
}

func (f *fakeHosts) Host(_ context.Context, ip string) (*ShodanHost, error) {
	f.seen = append(f.seen, ip)
	return f.host, f.err
}

func (f *fakeHosts) factory(string) (HostLookup, error) { return f, nil }

type fakeReputation struct {
	rep *Reputation
	err error
}

func (f *fakeReputation) Lookup(_ context.Context, kind, resource string) (*Reputation, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.rep
	r.Kind, r.Resource = kind, resource
	return &r, nil
}

func (f *fakeReputation) factory(string) (ReputationLookup, error) { return f, nil }

var errUnreachable = errors.New("unreachable")

// startDNS serves fixed answers for every name over UDP on localhost.
func startDNS(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		switch q.Qtype {
		case dns.TypeA:
			rr, _ := dns.NewRR(q.Name + " 300 IN A 93.184.216.34")
			m.Answer = append(m.Answer, rr)
		case dns.TypeMX:
			rr, _ := dns.NewRR(q.Name + " 300 IN MX 10 mail." + q.Name)
			m.Answer = append(m.Answer, rr)
		case dns.TypeTXT:
			rr, _ := dns.NewRR(q.Name + ` 300 IN TXT "v=spf1 -all"`)
			m.Answer = append(m.Answer, rr)
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })
	return pc.LocalAddr().String()
}
