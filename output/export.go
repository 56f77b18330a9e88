package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	ReportTitle      = "Corrosive's Rage - OSINT Report"
	DefaultReportDir = "reports"
	DefaultPrefix    = "corrosive_report"
)

// ErrUnknownFormat is returned for an export format other than pdf, md or html.
var ErrUnknownFormat = errors.New("unknown report format")

// Document is the set of result files rendered into one report.
type Document struct {
	Target    string
	Generated time.Time
	Summary   string
	Reports   []*Report
	Sources   []string
	// Unreadable lists "<file>: <error>" for result files that failed to load.
	Unreadable []string
}

func (d Document) sourceName(i int) string {
	if i < len(d.Sources) {
		return filepath.Base(d.Sources[i])
	}
	return "-"
}

// LoadDocument reads every path. Files that cannot be read are recorded, not fatal.
func LoadDocument(target string, paths []string, now time.Time) Document {
	doc := Document{Target: target, Generated: now}
	for _, p := range paths {
		r, err := ReadResult(p)
		if err != nil {
			doc.Unreadable = append(doc.Unreadable, fmt.Sprintf("%s: %v", filepath.Base(p), err))
			continue
		}
		doc.Reports = append(doc.Reports, r)
		doc.Sources = append(doc.Sources, p)
	}
	if doc.Target == "" && len(doc.Reports) > 0 {
		doc.Target = doc.Reports[0].Target
	}
	return doc
}

// ExportOptions drives Export. Zero values fall back to the defaults above.
type ExportOptions struct {
	Dir    string
	Prefix string
	Format string
	Now    time.Time
}

// ReportFileName is <prefix>_<sanitized-target>_<YYYYMMDD_HHMMSS>.<ext>.
func ReportFileName(prefix, target, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s", prefix, Sanitize(target), now.Format(FileStampLayout), ext)
}

// Export renders doc in the requested format and returns the written path.
func Export(doc Document, opts ExportOptions) (string, error) {
	if len(doc.Reports) == 0 && len(doc.Unreadable) == 0 {
		return "", ErrNoResults
	}
	if opts.Dir == "" {
		opts.Dir = DefaultReportDir
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if doc.Generated.IsZero() {
		doc.Generated = opts.Now
	}

	format := strings.ToLower(opts.Format)
	var write func(Document, string) error
	switch format {
	case "", "pdf":
		format, write = "pdf", WritePDFReport
	case "md", "markdown":
		format, write = "md", WriteMarkdownReport
	case "html":
		write = WriteHTMLReport
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	target := doc.Target
	if target == "" {
		target = "target"
	}
	path := filepath.Join(opts.Dir, ReportFileName(opts.Prefix, target, format, opts.Now))
	if err := write(doc, path); err != nil {
		return "", fmt.Errorf("write %s report: %w", format, err)
	}
	return filepath.Abs(path)
}
