package output

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResultMarkerPrefix starts the last stdout line of a CLI run; the rest of the
// line is the absolute path of the result file.
const ResultMarkerPrefix = "[=] result-file: "

func FormatResultMarker(path string) string {
	return ResultMarkerPrefix + path
}

// ParseResultMarker extracts the path from a marker line.
func ParseResultMarker(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	i := strings.Index(line, ResultMarkerPrefix)
	if i < 0 {
		return "", false
	}
	path := strings.TrimSpace(line[i+len(ResultMarkerPrefix):])
	return path, path != ""
}

// targetSpellings are the normalized forms a target may take inside a file name.
func targetSpellings(target string) []string {
	t := strings.ToLower(strings.TrimSpace(target))
	strip := strings.NewReplacer("@", "", ":", "", "/", "")
	raw := []string{
		t,
		strings.ToLower(Sanitize(target)),
		strings.ReplaceAll(t, " ", "_"),
		strip.Replace(t),
		strip.Replace(strings.ReplaceAll(t, " ", "")),
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range raw {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// FindResultFile is the loose fallback used when a run printed no marker line:
// the newest file in dir whose name contains module and any spelling of target,
// compared case-insensitively.
func FindResultFile(dir, target, module string) (string, error) {
	paths, err := ListResults(dir)
	if err != nil {
		return "", err
	}
	spellings := targetSpellings(target)
	module = strings.ToLower(module)
	for _, p := range paths {
		name := strings.ToLower(filepath.Base(p))
		if !strings.Contains(name, module) {
			continue
		}
		for _, s := range spellings {
			if strings.Contains(name, s) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w for %s/%s in %s", ErrNoResults, target, module, dir)
}

// ResultsFor returns every result file in dir whose name carries any spelling
// of target, newest first.
func ResultsFor(dir, target string) ([]string, error) {
	paths, err := ListResults(dir)
	if err != nil {
		return nil, err
	}
	spellings := targetSpellings(target)
	var out []string
	for _, p := range paths {
		name := strings.ToLower(filepath.Base(p))
		for _, s := range spellings {
			if strings.Contains(name, s) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}
