package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/corrosiverage/corrosive/output"
)

const projectsDir = "projects"

// Project is the projects/<name>/project.yml file.
type Project struct {
	Name       string   `yaml:"name"`
	Client     string   `yaml:"client,omitempty"`
	Scope      []string `yaml:"scope,omitempty"`
	Created    string   `yaml:"created"`
	ResultsDir string   `yaml:"results_dir"`
	Modules    []string `yaml:"modules"`
}

type projectOptions struct {
	client string
	scope  string
}

func (a *app) initCmd() *cobra.Command {
	var opts projectOptions
	cmd := &cobra.Command{
		Use:   "init <project>",
		Short: "Initialize a new investigation project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.createProject(args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.client, "client", "", "client name for the project")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "comma-separated scope of the project")
	return cmd
}

func (a *app) projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage investigation projects",
	}
	var opts projectOptions
	create := &cobra.Command{
		Use:   "create <project>",
		Short: "Create a new project (same as init)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.createProject(args[0], opts)
		},
	}
	create.Flags().StringVar(&opts.client, "client", "", "client name for the project")
	create.Flags().StringVar(&opts.scope, "scope", "", "comma-separated scope of the project")
	cmd.AddCommand(create)
	return cmd
}

func (a *app) createProject(name string, opts projectOptions) error {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid project name %q", name)
	}
	dir := filepath.Join(projectsDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}

	var scope []string
	for _, s := range strings.Split(opts.scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scope = append(scope, s)
		}
	}
	p := Project{
		Name:       name,
		Client:     opts.client,
		Scope:      scope,
		Created:    a.now().Format(output.TimestampLayout),
		ResultsDir: a.resultsDir,
		Modules:    a.engine.Names(),
	}
	data, err := yaml.Marshal(&p)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, "project.yml")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		warn.Fprintf(a.stdout, "Project '%s' already exists.\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	success.Fprintf(a.stdout, "Project '%s' created at %s\n", name, dir)
	return nil
}
