package modules

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hibpServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hibp-key", r.Header.Get("hibp-api-key"))
		assert.Equal(t, "Corrosive-Rage-OSINT-Framework", r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBreachReconMissingKey(t *testing.T) {
	res, err := NewBreachRecon().Run(context.Background(), newRC("a@b.com", nil))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "error", res.Findings[0].Type)
	assert.Equal(t, "HaveIBeenPwned API key is missing.", res.Findings[0].Data.(map[string]any)["message"])
	assert.Equal(t, []string{"haveibeenpwned_api_key"}, missingKeys(res))
}

func TestBreachReconFound(t *testing.T) {
	srv := hibpServer(t, http.StatusOK, `[{"Name":"Adobe","BreachDate":"2013-10-04"},{"Name":"LinkedIn"}]`)
	m := NewBreachRecon()
	m.HIBPURL = srv.URL + "/%s"

	res, err := m.Run(context.Background(), newRC("a@b.com", keyedConfig("haveibeenpwned", "hibp-key")))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	data := res.Findings[0].Data.(map[string]any)
	assert.Equal(t, "breaches_found", res.Findings[0].Type)
	assert.Equal(t, 2, data["breach_count"])
	assert.Equal(t, "Adobe", data["details"].([]map[string]any)[0]["Name"])
}

func TestBreachReconNotFoundMapsToNoBreaches(t *testing.T) {
	srv := hibpServer(t, http.StatusNotFound, "")
	m := NewBreachRecon()
	m.HIBPURL = srv.URL + "/%s"

	res, err := m.Run(context.Background(), newRC("clean@b.com", keyedConfig("haveibeenpwned", "hibp-key")))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "no_breaches_found", res.Findings[0].Type)
}

func TestBreachReconUnauthorized(t *testing.T) {
	srv := hibpServer(t, http.StatusUnauthorized, "")
	m := NewBreachRecon()
	m.HIBPURL = srv.URL + "/%s"

	res, err := m.Run(context.Background(), newRC("a@b.com", keyedConfig("haveibeenpwned", "hibp-key")))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0].Data.(map[string]any)["message"], "401")
}

func TestBreachReconBreachDirectory(t *testing.T) {
	srv := hibpServer(t, http.StatusNotFound, "")
	m := NewBreachRecon()
	m.HIBPURL = srv.URL + "/%s"
	m.BreachDirectory = func(_ context.Context, key, q string) (int, []BreachEntry, error) {
		assert.Equal(t, "bd-key", key)
		return 1, []BreachEntry{{Sources: "Collection1", Password: maskSecret("hunter2")}}, nil
	}

	cfg := keyedConfig("haveibeenpwned", "hibp-key", "breachdirectory", "bd-key")
	res, err := m.Run(context.Background(), newRC("a@b.com", cfg))
	require.NoError(t, err)
	require.Len(t, res.Findings, 2)
	bd := res.Findings[1].Data.(map[string]any)
	assert.Equal(t, 1, bd["found"])
	assert.Equal(t, "hu*****", bd["entries"].([]BreachEntry)[0].Password)

	m.BreachDirectory = func(context.Context, string, string) (int, []BreachEntry, error) {
		return 0, nil, errors.New("quota")
	}
	res, err = m.Run(context.Background(), newRC("a@b.com", cfg))
	require.NoError(t, err)
	assert.Equal(t, "error", res.Findings[len(res.Findings)-1].Type)
}
