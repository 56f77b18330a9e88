package modules

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corrosiverage/corrosive/core"
)

// Site is a social network profile URL template; %s receives the username.
type Site struct {
	Name string
	URL  string
}

// DefaultSites are probed by username_recon, in report order.
var DefaultSites = []Site{
	{Name: "Twitter", URL: "https://twitter.com/%s"},
	{Name: "Instagram", URL: "https://www.instagram.com/%s/"},
	{Name: "GitHub", URL: "https://github.com/%s"},
	{Name: "TikTok", URL: "https://www.tiktok.com/@%s"},
	{Name: "YouTube", URL: "https://www.youtube.com/%s"},
	{Name: "Reddit", URL: "https://www.reddit.com/user/%s"},
	{Name: "LinkedIn", URL: "https://www.linkedin.com/in/%s"},
	{Name: "Facebook", URL: "https://www.facebook.com/%s"},
}

const (
	DefaultProbeWorkers = 4
	DefaultProbeTimeout = 10 * time.Second
)

// Profile is a site where the username answered 200.
type Profile struct {
	Site string `json:"site"`
	URL  string `json:"url"`
}

// UsernameRecon probes a fixed site list for a username with a bounded pool.
type UsernameRecon struct {
	Sites        []Site
	Workers      int
	ProbeTimeout time.Duration
}

func NewUsernameRecon() *UsernameRecon {
	return &UsernameRecon{
		Sites:        DefaultSites,
		Workers:      DefaultProbeWorkers,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

func (m *UsernameRecon) Name() string { return "username_recon" }

func (m *UsernameRecon) Description() string {
	return "Checks for public profiles of a username across social networks"
}

func (m *UsernameRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	username := strings.TrimSpace(rc.Target)
	rc.Log.Infof("Starting username search for %s across %d sites", username, len(m.Sites))

	profiles := m.probeAll(ctx, rc, username)
	if ctx.Err() != nil {
		rc.Log.Warnf("Username search interrupted, reporting %d profiles found so far", len(profiles))
	}
	if len(profiles) == 0 {
		rc.Log.Infof("No public profiles found for %s", username)
		return rc.Result(), nil
	}
	rc.AddFinding("user_profiles", profiles)
	return rc.Result(), nil
}

// probeAll runs at most Workers probes at once. Each slot is written by one
// goroutine only, so results need no lock and keep site order.
func (m *UsernameRecon) probeAll(ctx context.Context, rc *core.Context, username string) []Profile {
	workers := m.Workers
	if workers <= 0 {
		workers = DefaultProbeWorkers
	}
	timeout := m.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	slots := make([]*Profile, len(m.Sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, site := range m.Sites {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			found, err := m.probe(gctx, rc, site, username, timeout)
			if err != nil {
				rc.Log.WithField("site", site.Name).Debugf("probe failed: %v", err)
				return nil
			}
			if found {
				rc.Log.Infof("Profile found on %s", site.Name)
				slots[i] = &Profile{Site: site.Name, URL: fmt.Sprintf(site.URL, url.PathEscape(username))}
			}
			return nil
		})
	}
	_ = g.Wait()

	profiles := []Profile{}
	for _, p := range slots {
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles
}

func (m *UsernameRecon) probe(ctx context.Context, rc *core.Context, site Site, username string, timeout time.Duration) (bool, error) {
	target := fmt.Sprintf(site.URL, url.PathEscape(username))
	resp, err := rc.HTTP.Fetch(ctx, target,
		core.WithMethod(http.MethodHead),
		core.WithTimeout(timeout),
		core.WithoutRedirects())
	if err != nil {
		var statusErr *core.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.StatusCode {
			case http.StatusNotFound:
				rc.Log.Debugf("Profile not found on %s", site.Name)
			case http.StatusForbidden, http.StatusTooManyRequests:
				rc.Log.Debugf("Access blocked by %s", site.Name)
			}
			return false, nil
		}
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}
