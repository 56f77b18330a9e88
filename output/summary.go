package output

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/corrosiverage/corrosive/core"
)

// maxPromptFindings bounds how much raw JSON is pasted into the prompt.
const maxPromptFindings = 12000

// SummaryPrompt builds the LLM prompt from the digest and the findings themselves.
func SummaryPrompt(doc Document) string {
	d := Summarize(doc.Reports)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Target: %s\n", doc.Target)
	fmt.Fprintf(&sb, "Modules run: %s\n", strings.Join(d.Modules, ", "))
	fmt.Fprintf(&sb, "Findings: %d, errors: %d\n", d.Findings, d.Errors)
	if d.Subdomains > 0 {
		fmt.Fprintf(&sb, "Subdomains: %d\n", d.Subdomains)
	}
	if len(d.OpenPorts) > 0 {
		fmt.Fprintf(&sb, "Open ports: %v\n", d.OpenPorts)
	}
	if len(d.Technologies) > 0 {
		fmt.Fprintf(&sb, "Technologies: %s\n", strings.Join(d.Technologies, ", "))
	}
	if d.Breaches > 0 {
		fmt.Fprintf(&sb, "Breaches: %d\n", d.Breaches)
	}

	raw, _ := json.Marshal(doc.Reports)
	if len(raw) > maxPromptFindings {
		raw = append(raw[:maxPromptFindings], "..."...)
	}
	sb.WriteString("\nRaw findings (JSON):\n")
	sb.Write(raw)
	sb.WriteString("\n\nWrite a short executive summary (at most three paragraphs) of the exposure these findings show.")
	return sb.String()
}

// ExecutiveSummary asks llm for a summary of doc.
func ExecutiveSummary(ctx context.Context, llm core.LLMClient, doc Document) (string, error) {
	if llm == nil {
		return "", fmt.Errorf("no LLM configured: set [Report] ollama_endpoint or openai_api_key")
	}
	if len(doc.Reports) == 0 {
		return "", ErrNoResults
	}
	return llm.Chat(ctx, SummaryPrompt(doc))
}
