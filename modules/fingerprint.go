package modules

import (
	"sort"
	"sync"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
)

// FingerprintFunc detects technologies from a page's headers and body.
type FingerprintFunc func(headers map[string][]string, body []byte) ([]string, error)

var (
	wappOnce   sync.Once
	wappClient *wappalyzer.Wappalyze
	wappErr    error
)

// Wappalyze fingerprints a page with the embedded wappalyzer rules. The rule
// set is loaded once per process.
func Wappalyze(headers map[string][]string, body []byte) ([]string, error) {
	wappOnce.Do(func() {
		wappClient, wappErr = wappalyzer.New()
	})
	if wappErr != nil {
		return nil, wappErr
	}
	techs := make([]string, 0)
	for name := range wappClient.Fingerprint(headers, body) {
		techs = append(techs, name)
	}
	sort.Strings(techs)
	return techs, nil
}
