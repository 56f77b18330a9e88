package output

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
)

func WriteHTMLReport(doc Document, path string) error {
	var sb strings.Builder
	d := Summarize(doc.Reports)

	sb.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + ReportTitle + `</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #222; max-width: 1000px; margin: 20px auto; padding: 0 20px; }
        h1, h2, h3 { color: #7a2e0e; }
        h1 { text-align: center; border-bottom: 2px solid #f0e0d6; padding-bottom: 10px; }
        .summary, .module { border: 1px solid #ddd; border-radius: 8px; padding: 20px; margin-bottom: 25px; background: #fbf8f6; }
        .summary h2, .module h2 { margin-top: 0; }
        pre { background: #2d2d2d; color: #f1f1f1; padding: 15px; border-radius: 5px; white-space: pre-wrap; word-wrap: break-word; font-family: "Fira Code", "Courier New", monospace; }
        code { background: #f0e0d6; padding: 2px 5px; border-radius: 4px; color: #7a2e0e; }
        .meta { color: #777; font-size: 0.9em; }
    </style>
</head>
<body>`)
	sb.WriteString("<h1>" + ReportTitle + "</h1>")

	// Summary Box
	sb.WriteString(`<div class="summary"><h2>Summary</h2><ul>`)
	sb.WriteString(fmt.Sprintf("<li><strong>Target:</strong> <code>%s</code></li>", html.EscapeString(doc.Target)))
	sb.WriteString(fmt.Sprintf("<li><strong>Generated:</strong> %s</li>", doc.Generated.Format(TimestampLayout)))
	sb.WriteString(fmt.Sprintf("<li><strong>Modules:</strong> %s</li>", html.EscapeString(strings.Join(d.Modules, ", "))))
	sb.WriteString(fmt.Sprintf("<li><strong>Findings:</strong> %d (%d errors)</li>", d.Findings, d.Errors))
	if d.Subdomains > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Subdomains:</strong> %d</li>", d.Subdomains))
	}
	if len(d.OpenPorts) > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Open Ports:</strong> %v</li>", d.OpenPorts))
	}
	if len(d.Technologies) > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Tech Detected:</strong> %s</li>", html.EscapeString(strings.Join(d.Technologies, ", "))))
	}
	if d.Breaches > 0 {
		sb.WriteString(fmt.Sprintf("<li><strong>Breaches:</strong> %d</li>", d.Breaches))
	}
	if len(d.Profiles) > 0 {
		sb.WriteString("<li><strong>Profiles:</strong><ul>")
		for _, p := range d.Profiles {
			sb.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(p)))
		}
		sb.WriteString("</ul></li>")
	}
	sb.WriteString("</ul>")
	if doc.Summary != "" {
		sb.WriteString("<h3>Executive Summary</h3><p>" + html.EscapeString(doc.Summary) + "</p>")
	}
	sb.WriteString("</div>")

	// Detailed Results
	for i, r := range doc.Reports {
		sb.WriteString(fmt.Sprintf(`<div class="module"><h2>%s: %s</h2>`, html.EscapeString(r.Module), html.EscapeString(r.Target)))
		sb.WriteString(fmt.Sprintf(`<p class="meta">%s, %s</p>`, html.EscapeString(doc.sourceName(i)), html.EscapeString(r.Timestamp)))
		for _, f := range r.Findings {
			sb.WriteString(fmt.Sprintf("<h3>%s</h3>", html.EscapeString(f.Type)))
			pretty, err := json.MarshalIndent(f.Data, "", "    ")
			if err != nil {
				sb.WriteString(fmt.Sprintf("<pre>%s</pre>", html.EscapeString(fmt.Sprintf("%v", f.Data))))
			} else {
				sb.WriteString(fmt.Sprintf("<pre>%s</pre>", html.EscapeString(string(pretty))))
			}
		}
		sb.WriteString("</div>")
	}
	for _, msg := range doc.Unreadable {
		sb.WriteString(fmt.Sprintf(`<p class="meta">Error reading %s</p>`, html.EscapeString(msg)))
	}
	sb.WriteString("</body></html>")
	return os.WriteFile(path, []byte(sb.String()), 0644)
}
