// Command scog keeps dotfiles in sync with a git repository.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/b1zzu/scog/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}
