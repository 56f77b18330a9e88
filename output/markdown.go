package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func WriteMarkdownReport(doc Document, path string) error {
	var sb strings.Builder
	d := Summarize(doc.Reports)

	sb.WriteString("# " + ReportTitle + "\n\n")
	sb.WriteString(fmt.Sprintf("- **Target:** `%s`\n", doc.Target))
	sb.WriteString(fmt.Sprintf("- **Generated:** %s\n\n", doc.Generated.Format(TimestampLayout)))

	// --- Summary Section ---
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Modules:** %s\n", strings.Join(d.Modules, ", ")))
	sb.WriteString(fmt.Sprintf("- **Findings:** %d (%d errors)\n", d.Findings, d.Errors))
	if d.Subdomains > 0 {
		sb.WriteString(fmt.Sprintf("- **Subdomains:** %d\n", d.Subdomains))
	}
	if len(d.OpenPorts) > 0 {
		sb.WriteString(fmt.Sprintf("- **Open Ports:** %v\n", d.OpenPorts))
	}
	if len(d.Technologies) > 0 {
		sb.WriteString(fmt.Sprintf("- **Tech Detected:** %s\n", strings.Join(d.Technologies, ", ")))
	}
	if d.Breaches > 0 {
		sb.WriteString(fmt.Sprintf("- **Breaches:** %d\n", d.Breaches))
	}
	if len(d.Profiles) > 0 {
		sb.WriteString("- **Profiles:**\n")
		for _, p := range d.Profiles {
			sb.WriteString(fmt.Sprintf("  - %s\n", p))
		}
	}
	if doc.Summary != "" {
		sb.WriteString("\n### Executive Summary\n\n" + doc.Summary + "\n")
	}
	sb.WriteString("\n---\n\n")

	// --- Detailed Results ---
	for i, r := range doc.Reports {
		sb.WriteString(fmt.Sprintf("## %s: %s\n\n", r.Module, r.Target))
		sb.WriteString(fmt.Sprintf("_Source: %s, %s_\n\n", doc.sourceName(i), r.Timestamp))
		for _, f := range r.Findings {
			sb.WriteString(fmt.Sprintf("### %s\n\n", f.Type))
			sb.WriteString("```json\n")
			pretty, err := json.MarshalIndent(f.Data, "", "    ")
			if err != nil {
				sb.WriteString(fmt.Sprintf("%v\n", f.Data))
			} else {
				sb.WriteString(string(pretty) + "\n")
			}
			sb.WriteString("```\n\n")
		}
	}
	for _, msg := range doc.Unreadable {
		sb.WriteString(fmt.Sprintf("> Error reading %s\n\n", msg))
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}
