package modules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	vt "github.com/VirusTotal/vt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirusTotalLookupDecodesAnalysisStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "api/v3/domains/evil.com"), r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-Apikey"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"type":"domain","id":"evil.com","attributes":{
			"reputation":-42,
			"last_analysis_stats":{"malicious":7,"suspicious":2,"harmless":60,"undetected":11}}}}`))
	}))
	defer srv.Close()
	vt.SetHost(srv.URL)
	defer vt.SetHost("https://www.virustotal.com")

	lookup, err := NewVirusTotalLookup("k")
	require.NoError(t, err)
	rep, err := lookup.Lookup(context.Background(), "domain", "evil.com")
	require.NoError(t, err)

	f := rep.Finding()
	assert.Equal(t, 7, f["malicious"])
	assert.Equal(t, 2, f["suspicious"])
	assert.Equal(t, 60, f["harmless"])
	assert.Equal(t, 11, f["undetected"])
	assert.Equal(t, -42, f["reputation"])
	assert.Equal(t, "https://www.virustotal.com/gui/domain/evil.com", f["permalink"])
}

func TestStatCount(t *testing.T) {
	n, ok := statCount(json.Number("5"))
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = statCount(float64(3))
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = statCount("x")
	assert.False(t, ok)
}
