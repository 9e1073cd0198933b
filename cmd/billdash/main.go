// Command billdash is a terminal dashboard for the multi-tenant billing API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billdash/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return exitFailure
		}
		return exitOK
	}
	cmd, ok := findCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return exitFailure
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "billdash: %v\n", err)
		return exitFailure
	}
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "billdash: %v\n", err)
		return exitFailure
	}

	a, err := newApp(ctx, cfg, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "billdash: %v\n", err)
		return exitFailure
	}
	code := cmd.run(ctx, a, args[1:])

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.close(closeCtx); err != nil {
		a.logger.Warn("shutdown incomplete", "error", err)
	}
	return code
}
