// salesctl is the sales team hub on the command line: sign in, record sales, read the company
// blog, chat with colleagues and, as a manager, administer members.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.New(os.Stdout)
	err := cli.NewRootCommand(app).ExecuteContext(ctx)
	if cerr := app.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "salesctl:", err)
		os.Exit(1)
	}
}
