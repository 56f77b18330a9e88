package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/corrosiverage/corrosive/core"
	"github.com/corrosiverage/corrosive/modules"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		color.New(color.FgYellow).Fprintf(os.Stderr, "[!] Warning: could not read .env: %v\n", err)
	}

	engine := core.NewEngine()
	modules.Register(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(engine, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			color.New(color.FgRed).Fprintf(os.Stderr, "[!] Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
