package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/corrosiverage/corrosive/core"
)

const (
	// DefaultResultsDir holds one JSON file per CLI invocation.
	DefaultResultsDir = "results"
	// TimestampLayout is the ISO-8601 form stored inside result files.
	TimestampLayout = "2006-01-02T15:04:05.000000"
	// FileStampLayout is the timestamp embedded in file names.
	FileStampLayout = "20060102_150405"
)

// ErrNoResults is returned when no result file matches.
var ErrNoResults = errors.New("no result files found")

// Report is the persisted form of a module run.
type Report struct {
	Target    string         `json:"target"`
	Module    string         `json:"module"`
	Timestamp string         `json:"timestamp"`
	Findings  []core.Finding `json:"findings"`
}

// NewReport wraps a result envelope with the time it was produced.
func NewReport(res *core.Result, now time.Time) *Report {
	findings := res.Findings
	if findings == nil {
		findings = []core.Finding{}
	}
	return &Report{
		Target:    res.Target,
		Module:    res.Module,
		Timestamp: now.Format(TimestampLayout),
		Findings:  findings,
	}
}

// Sanitize keeps letters, digits, '.' and '_' so target can be embedded in a
// file name. It is idempotent.
func Sanitize(target string) string {
	var b strings.Builder
	for _, r := range target {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "target"
	}
	return b.String()
}

// ResultFileName is <sanitized-target>_<module>_<YYYYMMDD_HHMMSS>.json.
func ResultFileName(target, module string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.json", Sanitize(target), module, now.Format(FileStampLayout))
}

// MarshalReport renders r as indented JSON.
func MarshalReport(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteResult writes r under dir and returns the absolute path. An existing
// file is never overwritten: a numeric suffix is added instead.
func WriteResult(dir string, r *Report, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	data, err := MarshalReport(r)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	base := strings.TrimSuffix(ResultFileName(r.Target, r.Module, now), ".json")
	for i := 0; ; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create result file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write result file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return filepath.Abs(path)
	}
}

// ReadResult loads a result file. Finding data comes back as generic JSON values.
func ReadResult(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &r, nil
}

// ListResults returns the JSON files in dir, newest first.
func ListResults(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	type item struct {
		path string
		mod  time.Time
	}
	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{filepath.Join(dir, e.Name()), info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].mod.Equal(items[j].mod) {
			return items[i].mod.After(items[j].mod)
		}
		return items[i].path > items[j].path
	})

	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.path
	}
	return paths, nil
}

// LatestResult returns the most recent result file regardless of target.
func LatestResult(dir string) (string, error) {
	paths, err := ListResults(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", ErrNoResults
	}
	return paths[0], nil
}
