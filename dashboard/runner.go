package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ModuleRunner executes one module against one target and reports every output
// line as it is produced.
type ModuleRunner interface {
	Run(ctx context.Context, target, module string, line func(string)) error
}

// ExecRunner runs the CLI as a child process: `<Executable> [Args...] -t target -m module`.
type ExecRunner struct {
	Executable string
	Args       []string
	Dir        string
	Env        []string
}

// NewExecRunner re-invokes the running binary with the given persistent flags.
func NewExecRunner(configPath, resultsDir string) (*ExecRunner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	var args []string
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if resultsDir != "" {
		args = append(args, "--results-dir", resultsDir)
	}
	return &ExecRunner{Executable: exe, Args: args}, nil
}

func (r *ExecRunner) Run(ctx context.Context, target, module string, line func(string)) error {
	args := append(append([]string{}, r.Args...), "-t", target, "-m", module)
	cmd := exec.CommandContext(ctx, r.Executable, args...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", module, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line(scanner.Text())
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s exited: %w", module, err)
	}
	return scanErr
}
