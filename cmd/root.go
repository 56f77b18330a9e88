package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corrosiverage/corrosive/core"
	"github.com/corrosiverage/corrosive/output"
)

// errReported marks failures that were already printed to the user.
var errReported = errors.New("failure already reported")

var (
	info    = color.New(color.FgCyan)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	fail    = color.New(color.FgRed)
)

// app holds the state shared by every subcommand.
type app struct {
	engine *core.Engine
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	configPath string
	resultsDir string
	verbose    bool
}

func (a *app) logger() *logrus.Logger {
	return core.NewLogger(a.verbose, a.stderr)
}

// loadConfig never fails: an unreadable file yields a warning and an empty
// configuration.
func (a *app) loadConfig() *core.Config {
	cfg, err := core.LoadConfig(a.configPath)
	if err != nil {
		warn.Fprintf(a.stdout, "[!] Warning: could not load configuration: %v\n", err)
		info.Fprintln(a.stdout, "[*] Using empty configuration.")
	}
	return cfg
}

func newRootCmd(engine *core.Engine, stdout, stderr io.Writer) *cobra.Command {
	a := &app{engine: engine, stdout: stdout, stderr: stderr, now: time.Now}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	var target, module string

	cmd := &cobra.Command{
		Use:   "corrosive",
		Short: "Corrosive's Rage - OSINT toolkit",
		Long: `Corrosive's Rage runs one reconnaissance module against one target and
stores the findings as a JSON file under the results directory.`,
		Example:       "  corrosive -t example.com -m domain_recon\n  corrosive -t user@example.com -m email",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" && module == "" {
				return cmd.Help()
			}
			if target == "" || module == "" {
				return errors.New("both --target and --module are required")
			}
			return a.investigate(cmd.Context(), target, module)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", core.DefaultConfigPath, "path to the INI configuration file")
	pf.StringVar(&a.resultsDir, "results-dir", output.DefaultResultsDir, "directory for result files")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	cmd.Flags().StringVarP(&target, "target", "t", "", "target to investigate (domain, email, IP, username, ...)")
	cmd.Flags().StringVarP(&module, "module", "m", "", "module to run (e.g. domain_recon or domain)")

	cmd.AddCommand(
		a.runCmd(),
		a.modulesCmd(),
		a.resultsCmd(),
		a.reportCmd(),
		a.initCmd(),
		a.projectCmd(),
		a.serveCmd(),
	)
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <module> <target>",
		Short: "Run a module against a target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.investigate(cmd.Context(), args[1], args[0])
		},
	}
}

// investigate runs one module and persists its result. Whatever was found
// before a failure is still written, followed by an error finding.
func (a *app) investigate(ctx context.Context, target, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	info.Fprintf(a.stdout, "[*] Starting '%s' investigation for target '%s'...\n", name, target)

	mod, err := a.engine.Resolve(name)
	if err != nil {
		fail.Fprintf(a.stdout, "[!] Error: module '%s' is not valid or not implemented.\n", name)
		return errReported
	}

	cfg := a.loadConfig()
	log := a.logger()
	rc := core.NewContext(target, mod.Name(), cfg, log, core.NewRequester(log))

	res, runErr := a.engine.RunModule(ctx, mod.Name(), rc)
	if runErr != nil {
		res.Findings = append(res.Findings, core.Finding{
			Type: core.FindingError,
			Data: map[string]any{
				"message": fmt.Sprintf("Critical error while running module '%s': %v", mod.Name(), runErr),
				"step":    "run",
			},
		})
	}

	now := a.now()
	report := output.NewReport(res, now)
	path, err := output.WriteResult(a.resultsDir, report, now)
	if err != nil {
		fail.Fprintf(a.stdout, "[!] Error: could not save results: %v\n", err)
		return errReported
	}

	if runErr != nil {
		fail.Fprintf(a.stdout, "\n[!] Critical error while running module '%s': %v\n", mod.Name(), runErr)
	} else {
		success.Fprintln(a.stdout, "\n[+] Investigation completed successfully!")
	}
	info.Fprintf(a.stdout, "[*] Results saved to: %s\n\n", path)

	data, err := output.MarshalReport(report)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if _, err := a.stdout.Write(data); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	fmt.Fprintln(a.stdout, output.FormatResultMarker(path))

	if runErr != nil {
		return errReported
	}
	return nil
}
