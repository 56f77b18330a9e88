package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corrosiverage/corrosive/core"
	"github.com/corrosiverage/corrosive/dashboard"
	"github.com/corrosiverage/corrosive/output"
)

func (a *app) serveCmd() *cobra.Command {
	var addr, reportDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := a.logger()
			cfg := a.loadConfig()

			runner, err := dashboard.NewExecRunner(a.configPath, a.resultsDir)
			if err != nil {
				return err
			}
			srv := dashboard.NewServer(dashboard.Options{
				Engine:     a.engine,
				Runner:     runner,
				ResultsDir: a.resultsDir,
				ReportDir:  reportDir,
				LLM:        core.NewLLMClient(cfg, log),
				Log:        log,
			})
			info.Fprintf(a.stdout, "[*] Dashboard on http://%s (Ctrl+C to stop)\n", addr)
			err = srv.ListenAndServe(cmd.Context(), addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", dashboard.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&reportDir, "reports-dir", output.DefaultReportDir, "directory for exported reports")
	return cmd
}
