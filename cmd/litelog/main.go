// Command litelog evaluates Datalog programs on SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/litelog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
