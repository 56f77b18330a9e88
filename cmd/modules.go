package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/corrosiverage/corrosive/core"
	"github.com/corrosiverage/corrosive/output"
)

func (a *app) modulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the available reconnaissance modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := tablewriter.NewWriter(a.stdout)
			table.Header("Module", "Alias", "Description", "API Keys")
			for _, m := range a.engine.Modules() {
				keys := "-"
				if km, ok := m.(core.KeyedModule); ok {
					names := make([]string, 0, len(km.Services()))
					for _, s := range km.Services() {
						names = append(names, core.KeyName(s))
					}
					keys = strings.Join(names, ", ")
				}
				table.Append(m.Name(), core.Alias(m.Name()), m.Description(), keys)
			}
			return table.Render()
		},
	}
}

func (a *app) resultsCmd() *cobra.Command {
	var latest bool
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List stored result files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if latest {
				path, err := output.LatestResult(a.resultsDir)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				info.Fprintf(a.stdout, "[*] %s\n", path)
				_, err = a.stdout.Write(data)
				return err
			}

			paths, err := output.ListResults(a.resultsDir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				warn.Fprintf(a.stdout, "[i] No result files in %s.\n", a.resultsDir)
				return nil
			}
			table := tablewriter.NewWriter(a.stdout)
			table.Header("No", "File", "Modified")
			for i, p := range paths {
				modified := "-"
				if st, err := os.Stat(p); err == nil {
					modified = st.ModTime().Format("2006-01-02 15:04:05")
				}
				table.Append(fmt.Sprint(i+1), p, modified)
			}
			return table.Render()
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "print the most recent result file")
	return cmd
}
