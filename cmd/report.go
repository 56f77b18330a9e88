package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corrosiverage/corrosive/core"
	"github.com/corrosiverage/corrosive/output"
)

type reportOptions struct {
	files     []string
	target    string
	format    string
	outDir    string
	summarize bool
}

func (a *app) reportCmd() *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export result files into a PDF, Markdown or HTML report",
		Long: `Export result files into a single report under the reports directory.
Without --files every result file is used, newest first; --target narrows the
selection to files naming that target.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.report(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.files, "files", nil, "result files to include")
	f.StringVar(&opts.target, "target", "", "only include result files for this target")
	f.StringVarP(&opts.format, "format", "f", "pdf", "report format: pdf, md or html")
	f.StringVarP(&opts.outDir, "output-dir", "o", output.DefaultReportDir, "directory for reports")
	f.BoolVar(&opts.summarize, "summarize", false, "add an LLM executive summary ([Report] ollama_endpoint or openai_api_key)")
	return cmd
}

func (a *app) report(cmd *cobra.Command, opts reportOptions) error {
	files := opts.files
	if len(files) == 0 {
		var err error
		if opts.target != "" {
			files, err = output.ResultsFor(a.resultsDir, opts.target)
		} else {
			files, err = output.ListResults(a.resultsDir)
		}
		if err != nil {
			return err
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s; run a module first", output.ErrNoResults, a.resultsDir)
	}

	doc := output.LoadDocument(opts.target, files, a.now())
	for _, msg := range doc.Unreadable {
		warn.Fprintf(a.stdout, "[!] Error reading %s\n", msg)
	}

	if opts.summarize {
		log := a.logger()
		llm := core.NewLLMClient(a.loadConfig(), log)
		summary, err := output.ExecutiveSummary(cmd.Context(), llm, doc)
		if err != nil {
			warn.Fprintf(a.stdout, "[!] Executive summary skipped: %v\n", err)
		}
		doc.Summary = summary
	}

	path, err := output.Export(doc, output.ExportOptions{Dir: opts.outDir, Format: opts.format, Now: a.now()})
	if err != nil {
		return err
	}
	success.Fprintf(a.stdout, "[+] Report generated from %d result file(s): %s\n", len(doc.Reports), path)
	return nil
}
